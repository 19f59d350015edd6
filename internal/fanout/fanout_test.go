package fanout

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/LiveState/internal/core"
)

type recorder struct {
	mu       sync.Mutex
	channels []string
	events   []*Event
}

func (r *recorder) Publish(_ context.Context, channel string, ev *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, channel)
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Close() error { return nil }

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent(core.Snapshot[any]{Store: "LikeStore", Key: "live_1", Version: 4, State: map[string]int{"totalLikeCount": 9}})
	require.NoError(t, err)
	assert.Equal(t, EventStateChanged, ev.Type)
	assert.Equal(t, uint64(4), ev.Version)
	assert.JSONEq(t, `{"totalLikeCount":9}`, string(ev.Payload))
	assert.Equal(t, "livestate:LikeStore:live_1", Channel(ev.Store, ev.Key))
}

func TestAsyncPublishesInOrder(t *testing.T) {
	rec := &recorder{}
	a := NewAsync(rec, 8)
	for v := uint64(1); v <= 3; v++ {
		a.Submit(core.Snapshot[any]{Store: "GiftStore", Key: "live_1", Version: v, State: v})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Run(ctx)

	require.Len(t, rec.events, 3)
	for i, ev := range rec.events {
		assert.Equal(t, uint64(i+1), ev.Version)
		assert.Equal(t, "livestate:GiftStore:live_1", rec.channels[i])
	}
	assert.Equal(t, int64(3), a.Sent())
}

func TestAsyncDropsWhenFull(t *testing.T) {
	a := NewAsync(Nop{}, 1)
	a.Submit(core.Snapshot[any]{Version: 1})
	a.Submit(core.Snapshot[any]{Version: 2})
	assert.Equal(t, int64(1), a.Dropped())
}

func TestAsyncSkipsUnencodableState(t *testing.T) {
	rec := &recorder{}
	a := NewAsync(rec, 2)
	a.Submit(core.Snapshot[any]{State: make(chan int)})
	a.Submit(core.Snapshot[any]{State: json.RawMessage(`{}`)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Run(ctx)
	a.Wait()
	assert.Len(t, rec.events, 1)
}
