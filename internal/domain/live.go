package domain

type LiveInfo struct {
	LiveID           string       `json:"liveID" validate:"required,max=48"`
	LiveName         string       `json:"liveName,omitempty" validate:"max=100"`
	Notice           string       `json:"notice,omitempty"`
	CoverURL         string       `json:"coverURL,omitempty"`
	BackgroundURL    string       `json:"backgroundURL,omitempty"`
	CategoryList     []int        `json:"categoryList,omitempty"`
	IsPublicVisible  bool         `json:"isPublicVisible"`
	IsMessageDisable bool         `json:"isMessageDisable"`
	IsSeatEnabled    bool         `json:"isSeatEnabled"`
	SeatMode         string       `json:"seatMode,omitempty" validate:"omitempty,oneof=FREE APPLY"`
	MaxSeatCount     int          `json:"maxSeatCount,omitempty" validate:"gte=0"`
	LiveOwner        *UserProfile `json:"liveOwner,omitempty"`
	CreateTime       int64        `json:"createTime,omitempty"`
	ViewCount        int          `json:"viewCount,omitempty"`
}

// LiveInfo fields that updateLiveInfo may change.
const (
	ModifyLiveName        = "LIVE_NAME"
	ModifyNotice          = "NOTICE"
	ModifyCoverURL        = "COVER_URL"
	ModifyBackgroundURL   = "BACKGROUND_URL"
	ModifyCategoryList    = "CATEGORY_LIST"
	ModifyPublicVisible   = "PUBLIC_VISIBLE"
	ModifyMessageDisabled = "MESSAGE_DISABLE"
)

// ModifyFlags lists every field updateLiveInfo may change.
var ModifyFlags = []string{
	ModifyLiveName, ModifyNotice, ModifyCoverURL, ModifyBackgroundURL,
	ModifyCategoryList, ModifyPublicVisible, ModifyMessageDisabled,
}
