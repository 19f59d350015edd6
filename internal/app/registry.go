package app

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/LiveState/internal/core"
)

var (
	ErrNoSession         = errors.New("no such session")
	ErrAlreadySubscribed = errors.New("already subscribed")
)

type sessionEntry struct {
	UserID string
	Conn   core.SignalConnection
	Encode core.Encoder
	Ctx    context.Context
	Cancel context.CancelFunc
	subs   map[string]subEntry
}

// subEntry is one subscription. current reports whether the partition it was
// taken on still exists; nil means always.
type subEntry struct {
	release func()
	current func() bool
}

func (s subEntry) stale() bool { return s.current != nil && !s.current() }

// Registry tracks subscriber sessions and what each one is subscribed to.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[core.SessionID]*sessionEntry)}
}

// Bind registers a connection and returns a context that is cancelled when
// the session is unbound.
func (r *Registry) Bind(
	parent context.Context,
	sid core.SessionID,
	userID string,
	conn core.SignalConnection,
	enc core.Encoder,
) context.Context {
	ctx, cancel := context.WithCancel(parent)
	r.mu.Lock()
	prev := r.sessions[sid]
	r.sessions[sid] = &sessionEntry{
		UserID: userID,
		Conn:   conn,
		Encode: enc,
		Ctx:    ctx,
		Cancel: cancel,
		subs:   make(map[string]subEntry),
	}
	r.mu.Unlock()
	if prev != nil {
		prev.release()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", userID).Msg("bound session")
	return ctx
}

func (r *Registry) Conn(sid core.SessionID) (core.SignalConnection, core.Encoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, nil, false
	}
	return e.Conn, e.Encode, true
}

func (r *Registry) UserOf(sid core.SessionID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok && e.UserID != "" {
		return e.UserID
	}
	return string(sid)
}

// AddSub stores the release func for one subscription.
func (r *Registry) AddSub(sid core.SessionID, key string, release func(), current func() bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return ErrNoSession
	}
	if _, dup := e.subs[key]; dup {
		return ErrAlreadySubscribed
	}
	e.subs[key] = subEntry{release: release, current: current}
	return nil
}

func (r *Registry) HasSub(sid core.SessionID, key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	_, ok = e.subs[key]
	return ok
}

// RemoveSub runs and forgets the release func for key.
func (r *Registry) RemoveSub(sid core.SessionID, key string) bool {
	r.mu.Lock()
	e, ok := r.sessions[sid]
	var sub subEntry
	if ok {
		sub, ok = e.subs[key]
		delete(e.subs, key)
	}
	r.mu.Unlock()
	if ok && sub.release != nil {
		sub.release()
	}
	return ok
}

// DropSub removes the entries for key whose partition was destroyed. Entries
// taken on a newer attachment of the same key are kept.
func (r *Registry) DropSub(key string) int {
	var stale []subEntry
	r.mu.Lock()
	for _, e := range r.sessions {
		if sub, ok := e.subs[key]; ok && sub.stale() {
			delete(e.subs, key)
			stale = append(stale, sub)
		}
	}
	r.mu.Unlock()
	for _, sub := range stale {
		if sub.release != nil {
			sub.release()
		}
	}
	return len(stale)
}

func (r *Registry) Subscriptions(sid core.SessionID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.subs))
	for k := range e.subs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Unbind releases every subscription, cancels the session context and
// returns the connection so the caller can close it.
func (r *Registry) Unbind(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.Lock()
	e, ok := r.sessions[sid]
	delete(r.sessions, sid)
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	e.release()
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return e.Conn, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (e *sessionEntry) release() {
	if e.Cancel != nil {
		e.Cancel()
	}
	for _, sub := range e.subs {
		if sub.release != nil {
			sub.release()
		}
	}
}
