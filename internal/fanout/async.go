package fanout

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"github.com/dkeye/LiveState/internal/core"
)

const publishTimeout = 2 * time.Second

// Async moves publishing off the store's delivery path. Submit never blocks;
// when the buffer is full the snapshot is dropped and counted.
type Async struct {
	pub     Publisher
	queue   chan core.Snapshot[any]
	dropped atomic.Int64
	sent    atomic.Int64
	done    chan struct{}
}

func NewAsync(pub Publisher, buffer int) *Async {
	if buffer <= 0 {
		buffer = 1
	}
	return &Async{
		pub:   pub,
		queue: make(chan core.Snapshot[any], buffer),
		done:  make(chan struct{}),
	}
}

func (a *Async) Submit(snap core.Snapshot[any]) {
	select {
	case a.queue <- snap:
	default:
		if a.dropped.Inc()%100 == 1 {
			log.Warn().Str("module", "fanout").Int64("dropped", a.dropped.Load()).Msg("fanout buffer full, dropping")
		}
	}
}

// Run publishes until ctx is done, then drains what is already queued.
func (a *Async) Run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case snap := <-a.queue:
					a.publish(context.Background(), snap)
				default:
					return
				}
			}
		case snap := <-a.queue:
			a.publish(ctx, snap)
		}
	}
}

// Wait blocks until Run has returned.
func (a *Async) Wait() { <-a.done }

func (a *Async) Dropped() int64 { return a.dropped.Load() }

func (a *Async) Sent() int64 { return a.sent.Load() }

func (a *Async) publish(ctx context.Context, snap core.Snapshot[any]) {
	ev, err := NewEvent(snap)
	if err != nil {
		log.Error().Err(err).Str("module", "fanout").Msg("build event")
		return
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := a.pub.Publish(pctx, Channel(snap.Store, snap.Key), ev); err != nil {
		log.Warn().Err(err).Str("module", "fanout").Str("store", snap.Store).Str("key", snap.Key).Msg("publish failed")
		return
	}
	a.sent.Inc()
}
