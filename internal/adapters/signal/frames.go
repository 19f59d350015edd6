package signal

// Client frame types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeAction      = "action"
	TypePing        = "ping"
)

// Server frame types.
const (
	TypeWelcome      = "welcome"
	TypeState        = "state"
	TypeSubscribed   = "subscribed"
	TypeUnsubscribed = "unsubscribed"
	TypeActionResult = "action_result"
	TypeError        = "error"
	TypePong         = "pong"
)

type clientFrame struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Store  string `json:"store,omitempty"`
	Room   string `json:"room,omitempty"`
	Action string `json:"action,omitempty"`
	Params any    `json:"params,omitempty"`
}

type welcomeFrame struct {
	Type  string `json:"type"`
	SID   string `json:"sid"`
	Codec string `json:"codec"`
}

type stateFrame struct {
	Type    string `json:"type"`
	Store   string `json:"store"`
	Key     string `json:"key"`
	Version uint64 `json:"version"`
	State   any    `json:"state"`
}

type ackFrame struct {
	Type  string `json:"type"`
	Store string `json:"store"`
	Room  string `json:"room,omitempty"`
}

type actionResultFrame struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type pongFrame struct {
	Type string `json:"type"`
}
