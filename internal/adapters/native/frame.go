package native

import "encoding/json"

const (
	FrameCall           = "call"
	FrameResult         = "result"
	FrameAddListener    = "addListener"
	FrameRemoveListener = "removeListener"
	FrameEvent          = "event"
	FramePing           = "ping"
	FramePong           = "pong"
)

// Frame is the envelope exchanged with the native peer. Request and Response
// carry the bridge JSON strings; Data is the raw event payload.
type Frame struct {
	Type     string          `json:"type"`
	ID       string          `json:"id,omitempty"`
	Key      string          `json:"key,omitempty"`
	Request  string          `json:"request,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
}
