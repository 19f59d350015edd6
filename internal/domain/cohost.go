package domain

type CoHostStatus string

const (
	CoHostDisconnected CoHostStatus = "DISCONNECTED"
	CoHostConnected    CoHostStatus = "CONNECTED"
)

type CoHostLayout string

const (
	LayoutDynamicGrid9 CoHostLayout = "HOST_DYNAMIC_GRID"
	LayoutDynamic1v6   CoHostLayout = "HOST_DYNAMIC_1V6"
	LayoutStatic1v6    CoHostLayout = "HOST_STATIC_1V6"
	LayoutVoiceConnect CoHostLayout = "HOST_VOICE_CONNECTION"
)

// CoHostUser is a host in another live taking part in a connection.
type CoHostUser struct {
	LiveID    string `json:"liveID"`
	UserID    string `json:"userID"`
	UserName  string `json:"userName,omitempty"`
	AvatarURL string `json:"avatarURL,omitempty"`
}
