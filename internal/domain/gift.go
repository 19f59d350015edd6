package domain

type Gift struct {
	GiftID        string            `json:"giftID"`
	Name          string            `json:"name"`
	Desc          string            `json:"desc,omitempty"`
	IconURL       string            `json:"iconURL,omitempty"`
	ResourceURL   string            `json:"resourceURL,omitempty"`
	Level         int               `json:"level,omitempty"`
	CoinCount     int               `json:"coins"`
	ExtensionInfo map[string]string `json:"extensionInfo,omitempty"`
}

type GiftCategory struct {
	CategoryID string `json:"categoryID"`
	Name       string `json:"name"`
	Desc       string `json:"desc,omitempty"`
	GiftList   []Gift `json:"giftList"`
}

// GiftMessage is one onReceiveGift notification.
type GiftMessage struct {
	LiveID string      `json:"liveID"`
	Gift   Gift        `json:"gift"`
	Count  int         `json:"count"`
	Sender UserProfile `json:"sender"`
}

// Coins is the value of the message in coins.
func (m GiftMessage) Coins() int { return m.Gift.CoinCount * m.Count }
