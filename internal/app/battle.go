package app

import (
	"context"
	"encoding/json"

	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/domain"
)

const BattleStoreName = "BattleStore"

type BattleState struct {
	CurrentBattleInfo *domain.BattleInfo  `json:"currentBattleInfo"`
	BattleUsers       []domain.BattleUser `json:"battleUsers"`
	BattleScore       map[string]int      `json:"battleScore"`
	LastBattle        *BattleResult       `json:"lastBattle"`
}

// BattleResult is kept after onBattleEnded so clients can show the outcome.
type BattleResult struct {
	BattleInfo domain.BattleInfo `json:"battleInfo"`
	Score      map[string]int    `json:"score"`
	Reason     string            `json:"reason,omitempty"`
}

type RequestBattleParams struct {
	LiveRef
	Config     domain.BattleConfig `json:"config"`
	UserIDList []string            `json:"userIDList" validate:"min=1,max=8,dive,required,max=32"`
	Timeout    int                 `json:"timeout" validate:"gte=0,lte=60"`
}

type BattleRequestParams struct {
	LiveRef
	BattleID   string   `json:"battleID" validate:"required"`
	UserIDList []string `json:"userIDList,omitempty" validate:"omitempty,dive,required"`
}

type BattleParams struct {
	LiveRef
	BattleID string `json:"battleID" validate:"required"`
}

type BattleService struct {
	*Feature[BattleState]
}

func NewBattleService(b *bridge.Client, opts Options) *BattleService {
	f := newFeature(BattleStoreName, ScopeRoom, func() BattleState {
		return BattleState{BattleUsers: []domain.BattleUser{}, BattleScore: map[string]int{}}
	}, b, opts)
	s := &BattleService{Feature: f}

	f.handle("currentBattleInfo", On(func(st *BattleState, v *domain.BattleInfo) { st.CurrentBattleInfo = v }))
	f.handle("battleUsers", On(func(st *BattleState, v []domain.BattleUser) { st.BattleUsers = v }))
	f.handle("battleScore", On(func(st *BattleState, v map[string]int) {
		if v == nil {
			v = map[string]int{}
		}
		st.BattleScore = v
	}))
	f.handle("onBattleEnded", On(func(st *BattleState, v struct {
		BattleInfo domain.BattleInfo `json:"battleInfo"`
		Reason     string            `json:"reason"`
	}) {
		st.LastBattle = &BattleResult{BattleInfo: v.BattleInfo, Score: st.BattleScore, Reason: v.Reason}
		st.CurrentBattleInfo = nil
		st.BattleUsers = []domain.BattleUser{}
		st.BattleScore = map[string]int{}
	}))

	f.action("requestBattle", BindResult(s.RequestBattle))
	f.action("cancelBattleRequest", Bind(s.CancelBattleRequest))
	f.action("acceptBattle", Bind(s.AcceptBattle))
	f.action("rejectBattle", Bind(s.RejectBattle))
	f.action("exitBattle", Bind(s.ExitBattle))
	return s
}

// RequestBattle returns native's answer, which carries the new battle id.
func (s *BattleService) RequestBattle(ctx context.Context, p RequestBattleParams) (json.RawMessage, error) {
	resp, err := s.call(ctx, "requestBattle", p)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (s *BattleService) CancelBattleRequest(ctx context.Context, p BattleRequestParams) error {
	_, err := s.call(ctx, "cancelBattleRequest", p)
	return err
}

func (s *BattleService) AcceptBattle(ctx context.Context, p BattleParams) error {
	_, err := s.call(ctx, "acceptBattle", p)
	return err
}

func (s *BattleService) RejectBattle(ctx context.Context, p BattleParams) error {
	_, err := s.call(ctx, "rejectBattle", p)
	return err
}

func (s *BattleService) ExitBattle(ctx context.Context, p BattleParams) error {
	_, err := s.call(ctx, "exitBattle", p)
	return err
}
