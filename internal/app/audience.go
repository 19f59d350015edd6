package app

import (
	"context"

	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/domain"
)

const LiveAudienceStoreName = "LiveAudienceStore"

type LiveAudienceState struct {
	AudienceList  []domain.UserProfile `json:"audienceList"`
	AudienceCount int                  `json:"audienceCount"`
}

type FetchAudienceListParams struct {
	LiveRef
	Cursor string `json:"cursor"`
	Count  int    `json:"count" validate:"gte=0,lte=100"`
}

type AudienceUserParams struct {
	LiveRef
	UserID string `json:"userID" validate:"required,max=32"`
}

type DisableSendMessageParams struct {
	LiveRef
	UserID    string `json:"userID" validate:"required,max=32"`
	IsDisable bool   `json:"isDisable"`
}

type LiveAudienceService struct {
	*Feature[LiveAudienceState]
}

func NewLiveAudienceService(b *bridge.Client, opts Options) *LiveAudienceService {
	f := newFeature(LiveAudienceStoreName, ScopeRoom, func() LiveAudienceState {
		return LiveAudienceState{AudienceList: []domain.UserProfile{}}
	}, b, opts)
	s := &LiveAudienceService{Feature: f}

	f.handle("audienceList", On(func(st *LiveAudienceState, v []domain.UserProfile) { st.AudienceList = v }))
	f.handle("audienceCount", On(func(st *LiveAudienceState, v int) { st.AudienceCount = v }))
	f.handle("onAudienceJoined", On(func(st *LiveAudienceState, u domain.UserProfile) {
		if indexOfUser(st.AudienceList, u.UserID) >= 0 {
			return
		}
		st.AudienceList = appendCapped(st.AudienceList, maxListLen, u)
	}))
	f.handle("onAudienceLeft", On(func(st *LiveAudienceState, u domain.UserProfile) {
		i := indexOfUser(st.AudienceList, u.UserID)
		if i < 0 {
			return
		}
		list := make([]domain.UserProfile, 0, len(st.AudienceList)-1)
		list = append(append(list, st.AudienceList[:i]...), st.AudienceList[i+1:]...)
		st.AudienceList = list
	}))

	f.action("fetchAudienceList", Bind(s.FetchAudienceList))
	f.action("setAdministrator", Bind(s.SetAdministrator))
	f.action("revokeAdministrator", Bind(s.RevokeAdministrator))
	f.action("kickUserOutOfRoom", Bind(s.KickUserOutOfRoom))
	f.action("disableSendMessage", Bind(s.DisableSendMessage))
	return s
}

func (s *LiveAudienceService) FetchAudienceList(ctx context.Context, p FetchAudienceListParams) error {
	_, err := s.call(ctx, "fetchAudienceList", p)
	return err
}

func (s *LiveAudienceService) SetAdministrator(ctx context.Context, p AudienceUserParams) error {
	_, err := s.call(ctx, "setAdministrator", p)
	return err
}

func (s *LiveAudienceService) RevokeAdministrator(ctx context.Context, p AudienceUserParams) error {
	_, err := s.call(ctx, "revokeAdministrator", p)
	return err
}

func (s *LiveAudienceService) KickUserOutOfRoom(ctx context.Context, p AudienceUserParams) error {
	_, err := s.call(ctx, "kickUserOutOfRoom", p)
	return err
}

func (s *LiveAudienceService) DisableSendMessage(ctx context.Context, p DisableSendMessageParams) error {
	_, err := s.call(ctx, "disableSendMessage", p)
	return err
}

func indexOfUser(list []domain.UserProfile, userID string) int {
	for i, u := range list {
		if u.UserID == userID {
			return i
		}
	}
	return -1
}
