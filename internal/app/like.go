package app

import (
	"context"

	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/domain"
)

const LikeStoreName = "LikeStore"

type LikeState struct {
	TotalLikeCount int                  `json:"totalLikeCount"`
	RecentLikes    []domain.LikeMessage `json:"recentLikes"`
}

type SendLikeParams struct {
	LiveRef
	Count int `json:"count" validate:"gte=0,lte=99"`
}

type LikeService struct {
	*Feature[LikeState]
}

func NewLikeService(b *bridge.Client, opts Options) *LikeService {
	f := newFeature(LikeStoreName, ScopeRoom, func() LikeState {
		return LikeState{RecentLikes: []domain.LikeMessage{}}
	}, b, opts)
	s := &LikeService{Feature: f}

	f.handle("totalLikeCount", On(func(st *LikeState, v int) { st.TotalLikeCount = v }))
	f.handle("onReceiveLikesMessage", On(func(st *LikeState, m domain.LikeMessage) {
		st.RecentLikes = appendCapped(st.RecentLikes, maxListLen, m)
		if m.TotalLikesReceived > st.TotalLikeCount {
			st.TotalLikeCount = m.TotalLikesReceived
		}
	}))

	f.action("sendLike", Bind(s.SendLike))
	return s
}

func (s *LikeService) SendLike(ctx context.Context, p SendLikeParams) error {
	if p.Count == 0 {
		p.Count = 1
	}
	_, err := s.call(ctx, "sendLike", p)
	return err
}
