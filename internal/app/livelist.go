package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/domain"
)

const LiveListStoreName = "LiveListStore"

type LiveListState struct {
	LiveList       []domain.LiveInfo `json:"liveList"`
	LiveListCursor string            `json:"liveListCursor"`
	CurrentLive    *domain.LiveInfo  `json:"currentLive"`
}

type FetchLiveListParams struct {
	Cursor string `json:"cursor"`
	Count  int    `json:"count" validate:"gt=0,lte=100"`
}

type CreateLiveParams struct {
	LiveInfo domain.LiveInfo `json:"liveInfo"`
}

type UpdateLiveInfoParams struct {
	LiveInfo       domain.LiveInfo `json:"liveInfo"`
	ModifyFlagList []string        `json:"modifyFlagList" validate:"min=1,dive,modify_flag"`
}

type LiveParams struct {
	LiveRef
}

// RoomCloser tears down room partitions when a live is left or ended.
type RoomCloser interface {
	LeaveRoom(liveID string)
	EndRoom(ctx context.Context, liveID string, final json.RawMessage)
}

type LiveListService struct {
	*Feature[LiveListState]
	rooms RoomCloser
}

func NewLiveListService(b *bridge.Client, opts Options) *LiveListService {
	f := newFeature(LiveListStoreName, ScopeGlobal, func() LiveListState {
		return LiveListState{LiveList: []domain.LiveInfo{}}
	}, b, opts)
	s := &LiveListService{Feature: f}

	f.handle("liveList", On(func(st *LiveListState, v []domain.LiveInfo) { st.LiveList = v }))
	f.handle("liveListCursor", On(func(st *LiveListState, v string) { st.LiveListCursor = v }))
	f.handle("currentLive", On(func(st *LiveListState, v *domain.LiveInfo) { st.CurrentLive = v }))

	f.action("fetchLiveList", Bind(s.FetchLiveList))
	f.action("createLive", Bind(s.CreateLive))
	f.action("joinLive", Bind(s.JoinLive))
	f.action("leaveLive", Bind(s.LeaveLive))
	f.action("endLive", BindResult(s.EndLive))
	f.action("updateLiveInfo", Bind(s.UpdateLiveInfo))
	return s
}

func (s *LiveListService) FetchLiveList(ctx context.Context, p FetchLiveListParams) error {
	if p.Count == 0 {
		p.Count = 20
	}
	_, err := s.call(ctx, "fetchLiveList", p)
	return err
}

func (s *LiveListService) CreateLive(ctx context.Context, p CreateLiveParams) error {
	_, err := s.call(ctx, "createLive", p)
	return err
}

func (s *LiveListService) JoinLive(ctx context.Context, p LiveParams) error {
	_, err := s.call(ctx, "joinLive", p)
	return err
}

// LeaveLive falls back to the current live when no id is given.
func (s *LiveListService) LeaveLive(ctx context.Context, p LiveParams) error {
	s.currentLive(&p)
	if _, err := s.call(ctx, "leaveLive", p); err != nil {
		return err
	}
	if s.rooms != nil {
		s.rooms.LeaveRoom(p.LiveID)
	}
	return nil
}

// EndLive returns the final statistics native reports, if any.
func (s *LiveListService) EndLive(ctx context.Context, p LiveParams) (json.RawMessage, error) {
	s.currentLive(&p)
	resp, err := s.call(ctx, "endLive", p)
	if err != nil {
		return nil, err
	}
	if s.rooms != nil {
		s.rooms.EndRoom(ctx, p.LiveID, resp.Data)
	}
	return resp.Data, nil
}

func (s *LiveListService) UpdateLiveInfo(ctx context.Context, p UpdateLiveInfoParams) error {
	_, err := s.call(ctx, "updateLiveInfo", p)
	return err
}

func (s *LiveListService) currentLive(p *LiveParams) {
	if p.LiveID != "" {
		return
	}
	if cur := s.current("").CurrentLive; cur != nil {
		p.LiveID = cur.LiveID
		log.Debug().Str("module", "app.livelist").Str("live_id", cur.LiveID).Msg("using current live")
	}
}

// Find looks a live up in the last fetched page.
func (s *LiveListService) Find(liveID string) (domain.LiveInfo, error) {
	for _, l := range s.current("").LiveList {
		if l.LiveID == liveID {
			return l, nil
		}
	}
	return domain.LiveInfo{}, fmt.Errorf("live %s not in list", liveID)
}
