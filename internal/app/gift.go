package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/domain"
)

const GiftStoreName = "GiftStore"

var ErrUnknownGift = errors.New("gift not usable in this live")

type GiftState struct {
	UsableGifts    []domain.GiftCategory `json:"usableGifts"`
	RecentGifts    []domain.GiftMessage  `json:"recentGifts"`
	TotalGiftCount int                   `json:"totalGiftCount"`
	TotalGiftCoins int                   `json:"totalGiftCoins"`
}

type SendGiftParams struct {
	LiveRef
	GiftID string `json:"giftID" validate:"required"`
	Count  int    `json:"count" validate:"gte=0,lte=9999"`
}

type SetLanguageParams struct {
	LiveRef
	Language string `json:"language" validate:"required,bcp47_language_tag"`
}

type GiftService struct {
	*Feature[GiftState]
}

func NewGiftService(b *bridge.Client, opts Options) *GiftService {
	f := newFeature(GiftStoreName, ScopeRoom, func() GiftState {
		return GiftState{UsableGifts: []domain.GiftCategory{}, RecentGifts: []domain.GiftMessage{}}
	}, b, opts)
	s := &GiftService{Feature: f}

	f.handle("usableGifts", On(func(st *GiftState, v []domain.GiftCategory) { st.UsableGifts = v }))
	f.handle("onReceiveGift", On(func(st *GiftState, m domain.GiftMessage) {
		st.RecentGifts = appendCapped(st.RecentGifts, maxListLen, m)
		st.TotalGiftCount += m.Count
		st.TotalGiftCoins += m.Coins()
	}))

	f.action("refreshUsableGifts", Bind(s.RefreshUsableGifts))
	f.action("sendGift", Bind(s.SendGift))
	f.action("setLanguage", Bind(s.SetLanguage))
	return s
}

func (s *GiftService) RefreshUsableGifts(ctx context.Context, p LiveParams) error {
	_, err := s.call(ctx, "refreshUsableGifts", p)
	return err
}

func (s *GiftService) SendGift(ctx context.Context, p SendGiftParams) error {
	if p.Count == 0 {
		p.Count = 1
	}
	if cats := s.current(p.LiveID).UsableGifts; len(cats) > 0 {
		if _, ok := findGift(cats, p.GiftID); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownGift, p.GiftID)
		}
	}
	_, err := s.call(ctx, "sendGift", p)
	return err
}

func (s *GiftService) SetLanguage(ctx context.Context, p SetLanguageParams) error {
	_, err := s.call(ctx, "setLanguage", p)
	return err
}

func findGift(cats []domain.GiftCategory, giftID string) (domain.Gift, bool) {
	for _, c := range cats {
		for _, g := range c.GiftList {
			if g.GiftID == giftID {
				return g, true
			}
		}
	}
	return domain.Gift{}, false
}
