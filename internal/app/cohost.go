package app

import (
	"context"
	"errors"

	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/domain"
)

const CoHostStoreName = "CoHostStore"

var ErrSelfConnection = errors.New("cannot connect a live to itself")

type CoHostState struct {
	Connected    []domain.CoHostUser `json:"connected"`
	Invitees     []domain.CoHostUser `json:"invitees"`
	Applicant    *domain.CoHostUser  `json:"applicant"`
	CoHostStatus domain.CoHostStatus `json:"coHostStatus"`
}

type RequestHostConnectionParams struct {
	LiveRef
	TargetLiveID  string              `json:"targetLiveID" validate:"required,max=48"`
	Layout        domain.CoHostLayout `json:"layoutTemplate" validate:"omitempty,oneof=HOST_DYNAMIC_GRID HOST_DYNAMIC_1V6 HOST_STATIC_1V6 HOST_VOICE_CONNECTION"`
	Timeout       int                 `json:"timeout" validate:"gte=0,lte=60"`
	ExtensionInfo string              `json:"extensionInfo,omitempty"`
}

type TargetLiveParams struct {
	LiveRef
	TargetLiveID string `json:"targetLiveID" validate:"required,max=48"`
}

type FromLiveParams struct {
	LiveRef
	FromLiveID string `json:"fromLiveID" validate:"required,max=48"`
}

type CoHostService struct {
	*Feature[CoHostState]
}

func NewCoHostService(b *bridge.Client, opts Options) *CoHostService {
	f := newFeature(CoHostStoreName, ScopeRoom, func() CoHostState {
		return CoHostState{
			Connected:    []domain.CoHostUser{},
			Invitees:     []domain.CoHostUser{},
			CoHostStatus: domain.CoHostDisconnected,
		}
	}, b, opts)
	s := &CoHostService{Feature: f}

	f.handle("connected", On(func(st *CoHostState, v []domain.CoHostUser) { st.Connected = v }))
	f.handle("invitees", On(func(st *CoHostState, v []domain.CoHostUser) { st.Invitees = v }))
	f.handle("applicant", On(func(st *CoHostState, v *domain.CoHostUser) { st.Applicant = v }))
	f.handle("coHostStatus", On(func(st *CoHostState, v domain.CoHostStatus) { st.CoHostStatus = v }))

	f.action("requestHostConnection", Bind(s.RequestHostConnection))
	f.action("cancelHostConnection", Bind(s.CancelHostConnection))
	f.action("acceptHostConnection", Bind(s.AcceptHostConnection))
	f.action("rejectHostConnection", Bind(s.RejectHostConnection))
	f.action("exitHostConnection", Bind(s.ExitHostConnection))
	return s
}

func (s *CoHostService) RequestHostConnection(ctx context.Context, p RequestHostConnectionParams) error {
	if p.TargetLiveID == p.LiveID {
		return ErrSelfConnection
	}
	if p.Layout == "" {
		p.Layout = domain.LayoutDynamicGrid9
	}
	_, err := s.call(ctx, "requestHostConnection", p)
	return err
}

func (s *CoHostService) CancelHostConnection(ctx context.Context, p TargetLiveParams) error {
	_, err := s.call(ctx, "cancelHostConnection", p)
	return err
}

func (s *CoHostService) AcceptHostConnection(ctx context.Context, p FromLiveParams) error {
	_, err := s.call(ctx, "acceptHostConnection", p)
	return err
}

func (s *CoHostService) RejectHostConnection(ctx context.Context, p FromLiveParams) error {
	_, err := s.call(ctx, "rejectHostConnection", p)
	return err
}

func (s *CoHostService) ExitHostConnection(ctx context.Context, p LiveParams) error {
	_, err := s.call(ctx, "exitHostConnection", p)
	return err
}
