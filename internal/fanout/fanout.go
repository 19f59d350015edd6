// Package fanout publishes committed store snapshots to other instances.
package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkeye/LiveState/internal/core"
)

const EventStateChanged = "state_changed"

// Event is what lands on the bus for every committed snapshot.
type Event struct {
	Type      string          `json:"type"`
	Store     string          `json:"store"`
	Key       string          `json:"key"`
	Version   uint64          `json:"version"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewEvent(snap core.Snapshot[any]) (*Event, error) {
	data, err := json.Marshal(snap.State)
	if err != nil {
		return nil, fmt.Errorf("marshal %s/%s: %w", snap.Store, snap.Key, err)
	}
	return &Event{
		Type:      EventStateChanged,
		Store:     snap.Store,
		Key:       snap.Key,
		Version:   snap.Version,
		Payload:   data,
		Timestamp: time.Now(),
	}, nil
}

// Channel is the bus channel for one store partition.
func Channel(store, key string) string {
	return fmt.Sprintf("livestate:%s:%s", store, key)
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(context.Context, string, *Event) error { return nil }

func (Nop) Close() error { return nil }
