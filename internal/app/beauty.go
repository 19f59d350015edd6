package app

import (
	"context"

	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/domain"
)

const BaseBeautyStoreName = "BaseBeautyStore"

type BaseBeautyState struct {
	domain.BeautyLevels
}

type BeautyLevelParams struct {
	Level float64 `json:"level" validate:"beauty_level"`
}

type BaseBeautyService struct {
	*Feature[BaseBeautyState]
}

func NewBaseBeautyService(b *bridge.Client, opts Options) *BaseBeautyService {
	f := newFeature(BaseBeautyStoreName, ScopeGlobal, func() BaseBeautyState { return BaseBeautyState{} }, b, opts)
	s := &BaseBeautyService{Feature: f}

	f.handle("smoothLevel", On(func(st *BaseBeautyState, v float64) { st.SmoothLevel = v }))
	f.handle("whitenessLevel", On(func(st *BaseBeautyState, v float64) { st.WhitenessLevel = v }))
	f.handle("ruddyLevel", On(func(st *BaseBeautyState, v float64) { st.RuddyLevel = v }))

	f.action("setSmoothLevel", Bind(s.level("setSmoothLevel")))
	f.action("setWhitenessLevel", Bind(s.level("setWhitenessLevel")))
	f.action("setRuddyLevel", Bind(s.level("setRuddyLevel")))
	f.action("resetBeauty", Bind(func(ctx context.Context, _ struct{}) error { return s.Reset(ctx) }))
	return s
}

func (s *BaseBeautyService) level(api string) func(context.Context, BeautyLevelParams) error {
	return func(ctx context.Context, p BeautyLevelParams) error {
		_, err := s.call(ctx, api, p)
		return err
	}
}

func (s *BaseBeautyService) SetSmoothLevel(ctx context.Context, level float64) error {
	return s.level("setSmoothLevel")(ctx, BeautyLevelParams{Level: level})
}

func (s *BaseBeautyService) SetWhitenessLevel(ctx context.Context, level float64) error {
	return s.level("setWhitenessLevel")(ctx, BeautyLevelParams{Level: level})
}

func (s *BaseBeautyService) SetRuddyLevel(ctx context.Context, level float64) error {
	return s.level("setRuddyLevel")(ctx, BeautyLevelParams{Level: level})
}

// Reset sets every level back to zero; native reports the new values.
func (s *BaseBeautyService) Reset(ctx context.Context) error {
	for _, api := range []string{"setSmoothLevel", "setWhitenessLevel", "setRuddyLevel"} {
		if err := s.level(api)(ctx, BeautyLevelParams{Level: domain.MinBeautyLevel}); err != nil {
			return err
		}
	}
	return nil
}
