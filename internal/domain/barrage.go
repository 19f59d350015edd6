package domain

type BarrageType string

const (
	BarrageText   BarrageType = "TEXT"
	BarrageCustom BarrageType = "CUSTOM"
	BarrageTip    BarrageType = "LOCAL_TIP"
)

const MaxBarrageTextLen = 200

type Barrage struct {
	LiveID      string      `json:"liveID"`
	Sender      UserProfile `json:"sender"`
	SequenceID  int64       `json:"sequence,omitempty"`
	Timestamp   int64       `json:"timestampInSecond,omitempty"`
	MessageType BarrageType `json:"messageType"`
	TextContent string      `json:"textContent,omitempty"`
	BusinessID  string      `json:"businessID,omitempty"`
	Data        string      `json:"data,omitempty"`
}
