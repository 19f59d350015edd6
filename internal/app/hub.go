package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/core"
	"github.com/dkeye/LiveState/internal/domain"
)

// Module is the type-erased view of a feature used by transports.
type Module interface {
	Name() string
	Scope() Scope
	Events() []string
	Partition(key string) string
	Snapshot(key string) core.Snapshot[any]
	Subscribe(key string, fn func(core.Snapshot[any])) func()
	Attach(key string) error
	Acquire(key string) (*Lease, error)
	Detach(key string)
	Attached(key string) bool
	Clear(key string)
	ClearAll()
	Actions() []string
	Do(ctx context.Context, key, action string, params json.RawMessage) (json.RawMessage, error)
	Keys() []string
}

// SummaryArchiver persists the final tally of an ended live.
type SummaryArchiver interface {
	Archive(ctx context.Context, liveID string, data domain.LiveSummaryData) error
}

// Hub owns every feature module, keyed by store name.
type Hub struct {
	Login    *LoginService
	LiveList *LiveListService
	Audience *LiveAudienceService
	Seat     *LiveSeatService
	Gift     *GiftService
	Barrage  *BarrageService
	Like     *LikeService
	Battle   *BattleService
	CoHost   *CoHostService
	Beauty   *BaseBeautyService
	Summary  *LiveSummaryService

	modules  map[string]Module
	order    []string
	archiver SummaryArchiver

	mu    sync.RWMutex
	hooks []func(store, key string)
}

func NewHub(b *bridge.Client, opts Options, archiver SummaryArchiver) *Hub {
	h := &Hub{
		Login:    NewLoginService(b, opts),
		LiveList: NewLiveListService(b, opts),
		Audience: NewLiveAudienceService(b, opts),
		Seat:     NewLiveSeatService(b, opts),
		Gift:     NewGiftService(b, opts),
		Barrage:  NewBarrageService(b, opts),
		Like:     NewLikeService(b, opts),
		Battle:   NewBattleService(b, opts),
		CoHost:   NewCoHostService(b, opts),
		Beauty:   NewBaseBeautyService(b, opts),
		Summary:  NewLiveSummaryService(b, opts),
		modules:  make(map[string]Module),
		archiver: archiver,
	}
	h.Login.onLogout = h.ClearAll
	h.LiveList.rooms = h

	for _, m := range []Module{
		h.Login, h.LiveList, h.Audience, h.Seat, h.Gift, h.Barrage,
		h.Like, h.Battle, h.CoHost, h.Beauty, h.Summary,
	} {
		h.modules[m.Name()] = m
		h.order = append(h.order, m.Name())
	}
	return h
}

func (h *Hub) Get(store string) (Module, error) {
	m, ok := h.modules[store]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, store)
	}
	return m, nil
}

func (h *Hub) Modules() []Module {
	out := make([]Module, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, h.modules[name])
	}
	return out
}

// OnClear registers fn to run after a partition is destroyed.
func (h *Hub) OnClear(fn func(store, key string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, fn)
}

// ClearRoom destroys the liveID partition of every room-scoped store.
func (h *Hub) ClearRoom(liveID string) {
	for _, m := range h.Modules() {
		if m.Scope() != ScopeRoom {
			continue
		}
		key := m.Partition(liveID)
		m.Clear(key)
		h.cleared(m.Name(), key)
	}
	log.Info().Str("module", "app.hub").Str("live_id", liveID).Msg("room cleared")
}

// ClearAll destroys every partition of every store.
func (h *Hub) ClearAll() {
	for _, m := range h.Modules() {
		keys := m.Keys()
		m.ClearAll()
		for _, key := range keys {
			h.cleared(m.Name(), key)
		}
	}
	log.Info().Str("module", "app.hub").Msg("all stores cleared")
}

// ClearPartition destroys one partition of one store. An empty room on a
// room-scoped store destroys all of its partitions.
func (h *Hub) ClearPartition(store, room string) error {
	m, err := h.Get(store)
	if err != nil {
		return err
	}
	key := m.Partition(room)
	if key == "" {
		keys := m.Keys()
		m.ClearAll()
		for _, k := range keys {
			h.cleared(m.Name(), k)
		}
		return nil
	}
	m.Clear(key)
	h.cleared(m.Name(), key)
	return nil
}

func (h *Hub) LeaveRoom(liveID string) { h.ClearRoom(liveID) }

// EndRoom archives the summary, preferring the final numbers native returned
// from endLive over the last summaryData event, then clears the room.
func (h *Hub) EndRoom(ctx context.Context, liveID string, final json.RawMessage) {
	data, _ := h.Summary.Current(liveID)
	if len(final) > 0 && string(final) != "null" {
		if norm, err := bridge.Normalize(final); err == nil {
			if inner := gjson.GetBytes(norm, "summaryData"); inner.IsObject() {
				final = json.RawMessage(inner.Raw)
			}
		}
		data = bridge.DecodeOr([]byte(final), data)
	}
	if h.archiver != nil {
		if err := h.archiver.Archive(ctx, liveID, data); err != nil {
			log.Error().Err(err).Str("module", "app.hub").Str("live_id", liveID).Msg("archive summary")
		}
	}
	h.ClearRoom(liveID)
}

func (h *Hub) cleared(store, key string) {
	h.mu.RLock()
	hooks := append([]func(string, string){}, h.hooks...)
	h.mu.RUnlock()
	for _, fn := range hooks {
		fn(store, key)
	}
}
