package core

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

// GlobalKey is the partition used by stores that are not scoped to a room.
const GlobalKey = "__global__"

// Snapshot is a versioned copy of one partition.
// Slices and maps inside State are shared with the store and must be treated as read-only.
type Snapshot[S any] struct {
	Store   string `json:"store"`
	Key     string `json:"key"`
	Version uint64 `json:"version"`
	State   S      `json:"state"`
}

type Listener[S any] func(Snapshot[S])

type Option[S any] func(*Store[S])

// WithObserver registers a callback that sees every committed mutation, across all keys.
func WithObserver[S any](fn func(Snapshot[S])) Option[S] {
	return func(s *Store[S]) { s.observer = fn }
}

type subscription[S any] struct {
	id     uint64
	fn     Listener[S]
	closed atomic.Bool
}

type entry[S any] struct {
	state   S
	version uint64
	subs    map[uint64]*subscription[S]
}

type delivery[S any] struct {
	subs    []*subscription[S]
	snap    Snapshot[S]
	observe bool
}

// Store is a threadsafe map from partition key to a state record.
// Notifications are queued under the same lock that commits the mutation and are
// drained in order, outside of it. A listener that mutates the store while being
// notified gets its own notification after it returns.
type Store[S any] struct {
	name     string
	init     func() S
	observer func(Snapshot[S])

	mu      sync.Mutex
	entries map[string]*entry[S]
	nextID  uint64

	qmu      sync.Mutex
	queue    []delivery[S]
	draining bool
}

func NewStore[S any](name string, init func() S, opts ...Option[S]) *Store[S] {
	s := &Store[S]{
		name:    name,
		init:    init,
		entries: make(map[string]*entry[S]),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store[S]) Name() string { return s.name }

// Get returns the state for key, creating it with the default record on first access.
func (s *Store[S]) Get(key string) S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreate(key).state
}

// Peek returns the current snapshot without creating the partition.
func (s *Store[S]) Peek(key string) (Snapshot[S], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Snapshot[S]{}, false
	}
	return s.snapshot(key, e), true
}

// Update applies fn to a copy of the state and commits it, then notifies listeners.
func (s *Store[S]) Update(key string, fn func(*S)) Snapshot[S] {
	s.mu.Lock()
	e := s.getOrCreate(key)
	next := e.state
	fn(&next)
	e.state = next
	e.version++
	snap := s.snapshot(key, e)
	s.enqueue(delivery[S]{subs: e.listeners(), snap: snap, observe: true})
	s.mu.Unlock()

	s.drain()
	return snap
}

// Subscribe adds fn for key and replays the current snapshot to it before any
// later notification. The returned func removes the listener and is idempotent.
func (s *Store[S]) Subscribe(key string, fn Listener[S]) func() {
	s.mu.Lock()
	e := s.getOrCreate(key)
	s.nextID++
	sub := &subscription[S]{id: s.nextID, fn: fn}
	e.subs[sub.id] = sub
	s.enqueue(delivery[S]{subs: []*subscription[S]{sub}, snap: s.snapshot(key, e)})
	s.mu.Unlock()

	s.drain()
	return func() { s.unsubscribe(key, sub) }
}

func (s *Store[S]) unsubscribe(key string, sub *subscription[S]) {
	if !sub.closed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.subs[sub.id] == sub {
		delete(e.subs, sub.id)
	}
}

// Clear drops the state and every listener for key.
func (s *Store[S]) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.close()
		delete(s.entries, key)
		log.Debug().Str("module", "core.store").Str("store", s.name).Str("key", key).Msg("partition cleared")
	}
}

func (s *Store[S]) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.close()
	}
	s.entries = make(map[string]*entry[S])
	log.Debug().Str("module", "core.store").Str("store", s.name).Msg("all partitions cleared")
}

func (s *Store[S]) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Store[S]) getOrCreate(key string) *entry[S] {
	e, ok := s.entries[key]
	if !ok {
		e = &entry[S]{state: s.init(), subs: make(map[uint64]*subscription[S])}
		s.entries[key] = e
	}
	return e
}

func (s *Store[S]) snapshot(key string, e *entry[S]) Snapshot[S] {
	return Snapshot[S]{Store: s.name, Key: key, Version: e.version, State: e.state}
}

// enqueue must be called with s.mu held so queue order matches commit order.
func (s *Store[S]) enqueue(d delivery[S]) {
	s.qmu.Lock()
	s.queue = append(s.queue, d)
	s.qmu.Unlock()
}

func (s *Store[S]) drain() {
	s.qmu.Lock()
	if s.draining {
		s.qmu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		d := s.queue[0]
		s.queue[0] = delivery[S]{}
		s.queue = s.queue[1:]
		s.qmu.Unlock()
		s.deliver(d)
		s.qmu.Lock()
	}
	s.queue = nil
	s.draining = false
	s.qmu.Unlock()
}

func (s *Store[S]) deliver(d delivery[S]) {
	for _, sub := range d.subs {
		if sub.closed.Load() {
			continue
		}
		s.call(func() { sub.fn(d.snap) })
	}
	if d.observe && s.observer != nil {
		s.call(func() { s.observer(d.snap) })
	}
}

func (s *Store[S]) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "core.store").Str("store", s.name).Interface("panic", r).Msg("listener panicked")
		}
	}()
	fn()
}

func (e *entry[S]) listeners() []*subscription[S] {
	out := make([]*subscription[S], 0, len(e.subs))
	for _, sub := range e.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (e *entry[S]) close() {
	for _, sub := range e.subs {
		sub.closed.Store(true)
	}
}
