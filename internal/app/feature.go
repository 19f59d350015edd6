package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/core"
	"github.com/dkeye/LiveState/internal/domain"
)

var (
	ErrInvalidParams = errors.New("invalid params")
	ErrUnknownAction = errors.New("unknown action")
	ErrUnknownStore  = errors.New("unknown store")
	ErrRateLimited   = errors.New("rate limited")
	ErrMissingLiveID = errors.New("live id required")
)

// maxListLen caps every append-only list kept in state.
const maxListLen = 200

var validate = newValidator()

// newValidator registers the domain bounds as tag aliases.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterAlias("beauty_level", fmt.Sprintf("gte=%d,lte=%d", domain.MinBeautyLevel, domain.MaxBeautyLevel))
	v.RegisterAlias("barrage_text", fmt.Sprintf("max=%d", domain.MaxBarrageTextLen))
	v.RegisterAlias("modify_flag", "oneof="+strings.Join(domain.ModifyFlags, " "))
	return v
}

type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeRoom
)

func (s Scope) String() string {
	if s == ScopeRoom {
		return "room"
	}
	return "global"
}

// EventHandler decodes a native payload into a mutation. Decoding happens
// before the store is locked so a bad payload never bumps the version.
type EventHandler[S any] func(payload []byte) (func(*S), error)

// On decodes the payload as V and applies it with fn.
func On[S, V any](fn func(*S, V)) EventHandler[S] {
	return func(payload []byte) (func(*S), error) {
		var v V
		if err := bridge.DecodeInto(payload, &v); err != nil {
			return nil, err
		}
		return func(s *S) { fn(s, v) }, nil
	}
}

// ActionFunc runs a named action against a partition with JSON params and
// returns the native response data, if any.
type ActionFunc func(ctx context.Context, key string, params json.RawMessage) (json.RawMessage, error)

// Bind adapts a typed action with no result.
func Bind[P any](fn func(ctx context.Context, p P) error) ActionFunc {
	return BindResult(func(ctx context.Context, p P) (json.RawMessage, error) {
		return nil, fn(ctx, p)
	})
}

// BindResult adapts a typed action. Params that embed LiveRef get the
// partition key as their live id when the caller left it empty.
func BindResult[P any](fn func(ctx context.Context, p P) (json.RawMessage, error)) ActionFunc {
	return func(ctx context.Context, key string, raw json.RawMessage) (json.RawMessage, error) {
		var p P
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
			}
		}
		if d, ok := any(&p).(liveDefaulter); ok && key != core.GlobalKey {
			d.defaultLiveID(key)
		}
		return fn(ctx, p)
	}
}

type liveDefaulter interface{ defaultLiveID(string) }

// LiveRef is embedded by every room-scoped action's params.
type LiveRef struct {
	LiveID string `json:"liveID" validate:"required,max=48"`
}

func (r *LiveRef) defaultLiveID(id string) {
	if r.LiveID == "" {
		r.LiveID = id
	}
}

// Options are shared by every feature built for one hub.
type Options struct {
	Call    []bridge.CallOption
	Publish func(core.Snapshot[any])
}

type attachment struct {
	refs  int
	epoch uint64
	keys  []string
}

// Lease is one counted hold on an attachment. Releasing a lease whose
// attachment was cleared leaves any later attachment of the key untouched.
type Lease struct {
	once    sync.Once
	release func()
	current func() bool
}

func (l *Lease) Release() { l.once.Do(l.release) }

// Current reports whether the attachment the lease was taken on still exists.
func (l *Lease) Current() bool { return l.current() }

// Feature binds one keyed store to its native event names and actions.
type Feature[S any] struct {
	name   string
	scope  Scope
	init   func() S
	store  *core.Store[S]
	bridge *bridge.Client
	opts   Options

	events map[string]EventHandler[S]
	order  []string

	mu       sync.Mutex
	attached map[string]*attachment
	epoch    uint64

	actions map[string]ActionFunc
}

func newFeature[S any](name string, scope Scope, init func() S, b *bridge.Client, opts Options) *Feature[S] {
	var storeOpts []core.Option[S]
	if opts.Publish != nil {
		publish := opts.Publish
		storeOpts = append(storeOpts, core.WithObserver(func(snap core.Snapshot[S]) {
			publish(erase(snap))
		}))
	}
	return &Feature[S]{
		name:     name,
		scope:    scope,
		init:     init,
		store:    core.NewStore(name, init, storeOpts...),
		bridge:   b,
		opts:     opts,
		events:   make(map[string]EventHandler[S]),
		attached: make(map[string]*attachment),
		actions:  make(map[string]ActionFunc),
	}
}

func (f *Feature[S]) handle(event string, h EventHandler[S]) {
	if _, ok := f.events[event]; !ok {
		f.order = append(f.order, event)
	}
	f.events[event] = h
}

func (f *Feature[S]) action(name string, fn ActionFunc) { f.actions[name] = fn }

func (f *Feature[S]) Name() string { return f.name }

func (f *Feature[S]) Scope() Scope { return f.scope }

func (f *Feature[S]) Events() []string { return append([]string(nil), f.order...) }

// Store exposes the typed store for in-process callers.
func (f *Feature[S]) Store() *core.Store[S] { return f.store }

// Partition maps a caller-supplied key onto the store key.
func (f *Feature[S]) Partition(key string) string {
	if f.scope == ScopeGlobal {
		return core.GlobalKey
	}
	return strings.TrimSpace(key)
}

func (f *Feature[S]) roomID(key string) string {
	if f.scope == ScopeGlobal {
		return ""
	}
	return key
}

// State returns the typed state for key, creating it if needed.
func (f *Feature[S]) State(key string) S { return f.store.Get(f.Partition(key)) }

// current reads key without creating it; a missing partition reads as the
// default record.
func (f *Feature[S]) current(key string) S {
	if snap, ok := f.store.Peek(f.Partition(key)); ok {
		return snap.State
	}
	return f.init()
}

// Snapshot returns version 0 and the default record for a missing partition.
func (f *Feature[S]) Snapshot(key string) core.Snapshot[any] {
	key = f.Partition(key)
	if snap, ok := f.store.Peek(key); ok {
		return erase(snap)
	}
	return core.Snapshot[any]{Store: f.name, Key: key, State: f.init()}
}

func (f *Feature[S]) Subscribe(key string, fn func(core.Snapshot[any])) func() {
	return f.store.Subscribe(f.Partition(key), func(snap core.Snapshot[S]) { fn(erase(snap)) })
}

func (f *Feature[S]) Keys() []string { return f.store.Keys() }

// Attach registers the native listeners for key. Attachments are counted:
// only the first call registers and only the matching last Detach removes them.
func (f *Feature[S]) Attach(key string) error {
	_, err := f.attach(f.Partition(key))
	return err
}

// Acquire attaches key and returns a lease bound to that attachment.
func (f *Feature[S]) Acquire(key string) (*Lease, error) {
	key = f.Partition(key)
	epoch, err := f.attach(key)
	if err != nil {
		return nil, err
	}
	return &Lease{
		release: func() { f.detach(key, epoch) },
		current: func() bool { return f.holds(key, epoch) },
	}, nil
}

func (f *Feature[S]) attach(key string) (uint64, error) {
	if key == "" {
		return 0, ErrMissingLiveID
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if a, ok := f.attached[key]; ok {
		a.refs++
		return a.epoch, nil
	}
	f.epoch++
	a := &attachment{refs: 1, epoch: f.epoch}
	for _, event := range f.order {
		lk := bridge.NewListenerKey(f.name, event, f.roomID(key), "").String()
		if err := f.bridge.AddListener(lk, f.listener(key, event, f.events[event])); err != nil {
			for _, k := range a.keys {
				_ = f.bridge.RemoveListener(k)
			}
			return 0, fmt.Errorf("attach %s/%s: %w", f.name, key, err)
		}
		a.keys = append(a.keys, lk)
	}
	f.attached[key] = a
	f.store.Get(key)
	log.Info().Str("module", "app.feature").Str("store", f.name).Str("key", key).Int("events", len(a.keys)).Msg("attached")
	return a.epoch, nil
}

func (f *Feature[S]) Detach(key string) { f.detach(f.Partition(key), 0) }

// detach drops one reference. A non-zero epoch must match the live attachment.
func (f *Feature[S]) detach(key string, epoch uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.attached[key]
	if !ok || (epoch != 0 && a.epoch != epoch) {
		return
	}
	a.refs--
	if a.refs > 0 {
		return
	}
	f.release(key, a)
}

func (f *Feature[S]) release(key string, a *attachment) {
	for _, k := range a.keys {
		if err := f.bridge.RemoveListener(k); err != nil {
			log.Warn().Err(err).Str("module", "app.feature").Str("store", f.name).Str("key", key).Msg("remove listener")
		}
	}
	delete(f.attached, key)
	log.Info().Str("module", "app.feature").Str("store", f.name).Str("key", key).Msg("detached")
}

func (f *Feature[S]) holds(key string, epoch uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attached[key]
	return ok && a.epoch == epoch
}

func (f *Feature[S]) Attached(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.attached[f.Partition(key)]
	return ok
}

// Clear destroys the partition: state, listeners and native registration.
func (f *Feature[S]) Clear(key string) {
	key = f.Partition(key)
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.attached[key]; ok {
		f.release(key, a)
	}
	f.store.Clear(key)
}

func (f *Feature[S]) ClearAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, a := range f.attached {
		f.release(key, a)
	}
	f.store.ClearAll()
}

func (f *Feature[S]) Actions() []string {
	out := make([]string, 0, len(f.actions))
	for name := range f.actions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (f *Feature[S]) Do(ctx context.Context, key, action string, params json.RawMessage) (json.RawMessage, error) {
	fn, ok := f.actions[action]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAction, f.name, action)
	}
	return fn(ctx, f.Partition(key), params)
}

// Apply mutates local state directly, for actions that never reach native.
func (f *Feature[S]) Apply(key string, fn func(*S)) core.Snapshot[S] {
	return f.store.Update(f.Partition(key), fn)
}

func (f *Feature[S]) listener(key, event string, h EventHandler[S]) bridge.Listener {
	return func(payload []byte) {
		mutate, err := h(payload)
		if err != nil {
			log.Warn().Err(err).Str("module", "app.feature").Str("store", f.name).Str("event", event).Str("key", key).Msg("dropping event")
			return
		}
		f.store.Update(key, mutate)
	}
}

// call validates params, then invokes api. State is never touched here: the
// native side answers with events.
func (f *Feature[S]) call(ctx context.Context, api string, params any) (*bridge.Response, error) {
	if params != nil {
		if err := validate.Struct(params); err != nil {
			return nil, invalid(err)
		}
	}
	resp, err := f.bridge.Call(ctx, api, params, f.opts.Call...)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.feature").Str("store", f.name).Str("api", api).Msg("action failed")
		return nil, err
	}
	log.Debug().Str("module", "app.feature").Str("store", f.name).Str("api", api).Msg("action ok")
	return resp, nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, describe(err))
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func erase[S any](snap core.Snapshot[S]) core.Snapshot[any] {
	return core.Snapshot[any]{Store: snap.Store, Key: snap.Key, Version: snap.Version, State: snap.State}
}

// appendCapped returns a new slice with v appended, keeping the newest limit items.
func appendCapped[V any](list []V, limit int, v ...V) []V {
	all := make([]V, 0, len(list)+len(v))
	all = append(append(all, list...), v...)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all
}
