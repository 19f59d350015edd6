package domain

type BattleConfig struct {
	Duration      int    `json:"duration" validate:"gt=0,lte=3600"`
	NeedResponse  bool   `json:"needResponse"`
	ExtensionInfo string `json:"extensionInfo,omitempty"`
}

type BattleInfo struct {
	BattleID  string       `json:"battleID"`
	Config    BattleConfig `json:"config"`
	StartTime int64        `json:"startTime"`
	EndTime   int64        `json:"endTime"`
}

// BattleUser is a participant; LiveID is the live the user hosts.
type BattleUser struct {
	LiveID    string `json:"liveID"`
	UserID    string `json:"userID"`
	UserName  string `json:"userName,omitempty"`
	AvatarURL string `json:"avatarURL,omitempty"`
}
