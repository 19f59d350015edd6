package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/LiveState/internal/core"
)

// Orchestrator connects subscriber sessions to feature modules.
type Orchestrator struct {
	Registry *Registry
	Hub      *Hub
	Policy   Policy
	Limiter  *RateLimiter
}

func NewOrchestrator(reg *Registry, hub *Hub, policy Policy, limiter *RateLimiter) *Orchestrator {
	o := &Orchestrator{Registry: reg, Hub: hub, Policy: policy, Limiter: limiter}
	hub.OnClear(func(store, key string) {
		if n := reg.DropSub(subKey(store, key)); n > 0 {
			log.Info().Str("module", "app.orch").Str("store", store).Str("key", key).Int("sessions", n).Msg("dropped subscriptions of cleared partition")
		}
	})
	return o
}

func subKey(store, key string) string { return store + "/" + key }

// Subscribe attaches the feature for room if this is its first subscriber and
// streams snapshots to sid, starting with a replay of the current state.
func (o *Orchestrator) Subscribe(sid core.SessionID, store, room string) error {
	m, err := o.Hub.Get(store)
	if err != nil {
		return err
	}
	key := m.Partition(room)
	if key == "" {
		return ErrMissingLiveID
	}
	sk := subKey(store, key)
	if o.Registry.HasSub(sid, sk) {
		return nil
	}
	lease, err := m.Acquire(key)
	if err != nil {
		return err
	}
	unsub := m.Subscribe(key, func(snap core.Snapshot[any]) { o.deliver(sid, snap) })
	release := func() {
		unsub()
		lease.Release()
	}
	if err := o.Registry.AddSub(sid, sk, release, lease.Current); err != nil {
		release()
		if errors.Is(err, ErrAlreadySubscribed) {
			return nil
		}
		return err
	}
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("store", store).Str("key", key).Msg("subscribed")
	return nil
}

func (o *Orchestrator) Unsubscribe(sid core.SessionID, store, room string) error {
	m, err := o.Hub.Get(store)
	if err != nil {
		return err
	}
	if o.Registry.RemoveSub(sid, subKey(store, m.Partition(room))) {
		log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("store", store).Str("room", room).Msg("unsubscribed")
	}
	return nil
}

// Action runs a store action on behalf of user, applying the rate limit to
// throttled actions.
func (o *Orchestrator) Action(ctx context.Context, user, store, room, action string, params json.RawMessage) (json.RawMessage, error) {
	m, err := o.Hub.Get(store)
	if err != nil {
		return nil, err
	}
	if Throttled(action) && !o.Limiter.Allow(user+"|"+action) {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, action)
	}
	return m.Do(ctx, room, action, params)
}

// Kick disconnects sid and releases everything it holds.
func (o *Orchestrator) Kick(sid core.SessionID) {
	conn, ok := o.Registry.Unbind(sid)
	if !ok {
		return
	}
	if conn != nil {
		conn.Close()
	}
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Msg("kicked")
}

func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	o.Registry.Unbind(sid)
}

// Run sweeps idle rate limiter history until ctx is done.
func (o *Orchestrator) Run(ctx context.Context, every time.Duration) {
	if o.Limiter == nil || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.Limiter.Sweep()
		}
	}
}

func (o *Orchestrator) deliver(sid core.SessionID, snap core.Snapshot[any]) {
	conn, enc, ok := o.Registry.Conn(sid)
	if !ok {
		return
	}
	frame, err := enc(snap)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("sid", string(sid)).Str("store", snap.Store).Msg("encode snapshot")
		return
	}
	err = conn.TrySend(frame)
	if err == nil || !errors.Is(err, core.ErrBackpressure) {
		return
	}
	if o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(sid, snap) {
	case KickMember:
		log.Warn().Str("module", "app.orch").Str("sid", string(sid)).Str("store", snap.Store).Msg("slow subscriber kicked")
		o.Kick(sid)
	case DropFrame:
		log.Debug().Str("module", "app.orch").Str("sid", string(sid)).Uint64("version", snap.Version).Msg("frame dropped")
	case NoAction:
	}
}
