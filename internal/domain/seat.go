package domain

// SeatUserInfo is whoever occupies a seat, possibly from another live during co-hosting.
type SeatUserInfo struct {
	UserID           string `json:"userID"`
	UserName         string `json:"userName,omitempty"`
	AvatarURL        string `json:"avatarURL,omitempty"`
	LiveID           string `json:"liveID,omitempty"`
	MicrophoneStatus string `json:"microphoneStatus,omitempty"`
	CameraStatus     string `json:"cameraStatus,omitempty"`
}

type SeatInfo struct {
	Index    int           `json:"index"`
	IsLocked bool          `json:"isLocked"`
	UserInfo *SeatUserInfo `json:"userInfo,omitempty"`
	Region   *Region       `json:"region,omitempty"`
}

func (s SeatInfo) Occupied() bool { return s.UserInfo != nil && s.UserInfo.UserID != "" }

type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	W      float64 `json:"w"`
	H      float64 `json:"h"`
	ZOrder int     `json:"zorder"`
}

type LiveCanvas struct {
	TemplateID int `json:"templateID"`
	Width      int `json:"w"`
	Height     int `json:"h"`
}
