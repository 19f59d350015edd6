package domain

// LikeMessage is one onReceiveLikesMessage notification.
type LikeMessage struct {
	LiveID             string      `json:"liveID"`
	TotalLikesReceived int         `json:"totalLikesReceived"`
	Count              int         `json:"count"`
	Sender             UserProfile `json:"sender"`
}
