package app

import (
	"context"
	"fmt"

	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/domain"
)

const LiveSeatStoreName = "LiveSeatStore"

type LiveSeatState struct {
	SeatList      []domain.SeatInfo  `json:"seatList"`
	Canvas        *domain.LiveCanvas `json:"canvas"`
	SpeakingUsers map[string]int     `json:"speakingUsers"`
}

// TakeSeatParams uses -1 to let native pick a free seat.
type TakeSeatParams struct {
	LiveRef
	SeatIndex int `json:"seatIndex" validate:"gte=-1"`
	Timeout   int `json:"timeout" validate:"gte=0,lte=60"`
}

type SeatIndexParams struct {
	LiveRef
	SeatIndex int `json:"seatIndex" validate:"gte=0"`
}

type SeatUserParams struct {
	LiveRef
	UserID string `json:"userID" validate:"required,max=32"`
}

type MoveUserToSeatParams struct {
	LiveRef
	UserID      string `json:"userID" validate:"required,max=32"`
	TargetIndex int    `json:"targetIndex" validate:"gte=0"`
}

type RemoteDeviceParams struct {
	LiveRef
	UserID string `json:"userID" validate:"required,max=32"`
	Policy string `json:"policy,omitempty" validate:"omitempty,oneof=UNLOCK_ONLY UNLOCK_AND_OPEN"`
}

type LiveSeatService struct {
	*Feature[LiveSeatState]
}

func NewLiveSeatService(b *bridge.Client, opts Options) *LiveSeatService {
	f := newFeature(LiveSeatStoreName, ScopeRoom, func() LiveSeatState {
		return LiveSeatState{SeatList: []domain.SeatInfo{}, SpeakingUsers: map[string]int{}}
	}, b, opts)
	s := &LiveSeatService{Feature: f}

	f.handle("seatList", On(func(st *LiveSeatState, v []domain.SeatInfo) { st.SeatList = v }))
	f.handle("canvas", On(func(st *LiveSeatState, v *domain.LiveCanvas) { st.Canvas = v }))
	f.handle("speakingUsers", On(func(st *LiveSeatState, v map[string]int) {
		if v == nil {
			v = map[string]int{}
		}
		st.SpeakingUsers = v
	}))

	f.action("takeSeat", Bind(s.TakeSeat))
	f.action("leaveSeat", Bind(s.LeaveSeat))
	f.action("lockSeat", Bind(s.LockSeat))
	f.action("unlockSeat", Bind(s.UnlockSeat))
	f.action("kickUserOutOfSeat", Bind(s.KickUserOutOfSeat))
	f.action("moveUserToSeat", Bind(s.MoveUserToSeat))
	f.action("openRemoteMicrophone", Bind(s.OpenRemoteMicrophone))
	f.action("closeRemoteMicrophone", Bind(s.CloseRemoteMicrophone))
	return s
}

func (s *LiveSeatService) TakeSeat(ctx context.Context, p TakeSeatParams) error {
	if p.SeatIndex >= 0 {
		if err := s.checkIndex(p.LiveID, p.SeatIndex); err != nil {
			return err
		}
	}
	_, err := s.call(ctx, "takeSeat", p)
	return err
}

func (s *LiveSeatService) LeaveSeat(ctx context.Context, p LiveParams) error {
	_, err := s.call(ctx, "leaveSeat", p)
	return err
}

func (s *LiveSeatService) LockSeat(ctx context.Context, p SeatIndexParams) error {
	if err := s.checkIndex(p.LiveID, p.SeatIndex); err != nil {
		return err
	}
	_, err := s.call(ctx, "lockSeat", p)
	return err
}

func (s *LiveSeatService) UnlockSeat(ctx context.Context, p SeatIndexParams) error {
	if err := s.checkIndex(p.LiveID, p.SeatIndex); err != nil {
		return err
	}
	_, err := s.call(ctx, "unlockSeat", p)
	return err
}

func (s *LiveSeatService) KickUserOutOfSeat(ctx context.Context, p SeatUserParams) error {
	_, err := s.call(ctx, "kickUserOutOfSeat", p)
	return err
}

func (s *LiveSeatService) MoveUserToSeat(ctx context.Context, p MoveUserToSeatParams) error {
	if err := s.checkIndex(p.LiveID, p.TargetIndex); err != nil {
		return err
	}
	_, err := s.call(ctx, "moveUserToSeat", p)
	return err
}

func (s *LiveSeatService) OpenRemoteMicrophone(ctx context.Context, p RemoteDeviceParams) error {
	if p.Policy == "" {
		p.Policy = "UNLOCK_ONLY"
	}
	_, err := s.call(ctx, "openRemoteMicrophone", p)
	return err
}

func (s *LiveSeatService) CloseRemoteMicrophone(ctx context.Context, p RemoteDeviceParams) error {
	_, err := s.call(ctx, "closeRemoteMicrophone", p)
	return err
}

// checkIndex rejects indexes outside the known seat list. An empty list means
// native has not reported seats yet, so the call goes through.
func (s *LiveSeatService) checkIndex(liveID string, index int) error {
	n := len(s.current(liveID).SeatList)
	if n > 0 && index >= n {
		return fmt.Errorf("%w: seat index %d out of range [0,%d)", ErrInvalidParams, index, n)
	}
	return nil
}

// SeatOf returns the seat held by userID, or -1.
func (s *LiveSeatService) SeatOf(liveID, userID string) int {
	for _, seat := range s.current(liveID).SeatList {
		if seat.Occupied() && seat.UserInfo.UserID == userID {
			return seat.Index
		}
	}
	return -1
}
