package bridge

import (
	"encoding/json"
	"fmt"
)

const listenerTypeState = "state"

// ListenerKey identifies one native event channel. Field order is part of the
// wire format: the serialized string is the channel id.
type ListenerKey struct {
	Type       string  `json:"type"`
	Store      string  `json:"store"`
	Name       string  `json:"name"`
	RoomID     *string `json:"roomID"`
	ListenerID *string `json:"listenerID"`
}

// NewListenerKey builds a state listener key; empty roomID or listenerID serialize as null.
func NewListenerKey(store, name, roomID, listenerID string) ListenerKey {
	k := ListenerKey{Type: listenerTypeState, Store: store, Name: name}
	if roomID != "" {
		k.RoomID = &roomID
	}
	if listenerID != "" {
		k.ListenerID = &listenerID
	}
	return k
}

func (k ListenerKey) String() string {
	b, err := json.Marshal(k)
	if err != nil {
		// only string fields, cannot fail
		return ""
	}
	return string(b)
}

func ParseListenerKey(s string) (ListenerKey, error) {
	var k ListenerKey
	if err := json.Unmarshal([]byte(s), &k); err != nil {
		return ListenerKey{}, fmt.Errorf("parse listener key: %w", err)
	}
	return k, nil
}
