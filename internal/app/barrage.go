package app

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/domain"
)

const BarrageStoreName = "BarrageStore"

var ErrMessageDisabled = errors.New("sending messages is disabled")

type BarrageState struct {
	MessageList      []domain.Barrage `json:"messageList"`
	AllowSendMessage bool             `json:"allowSendMessage"`
}

type SendTextMessageParams struct {
	LiveRef
	Text          string            `json:"text" validate:"required,barrage_text"`
	ExtensionInfo map[string]string `json:"extensionInfo,omitempty"`
}

type SendCustomMessageParams struct {
	LiveRef
	BusinessID string `json:"businessID" validate:"required,max=64"`
	Data       string `json:"data" validate:"required"`
}

type LocalTipParams struct {
	LiveRef
	Text string `json:"text" validate:"required,barrage_text"`
}

type BarrageService struct {
	*Feature[BarrageState]
	now func() time.Time
}

func NewBarrageService(b *bridge.Client, opts Options) *BarrageService {
	f := newFeature(BarrageStoreName, ScopeRoom, func() BarrageState {
		return BarrageState{MessageList: []domain.Barrage{}, AllowSendMessage: true}
	}, b, opts)
	s := &BarrageService{Feature: f, now: time.Now}

	f.handle("messageList", On(func(st *BarrageState, v []domain.Barrage) {
		st.MessageList = appendCapped(nil, maxListLen, v...)
	}))
	f.handle("allowSendMessage", On(func(st *BarrageState, v bool) { st.AllowSendMessage = v }))
	f.handle("onReceiveMessage", On(func(st *BarrageState, m domain.Barrage) {
		st.MessageList = appendCapped(st.MessageList, maxListLen, m)
	}))

	f.action("sendTextMessage", Bind(s.SendTextMessage))
	f.action("sendCustomMessage", Bind(s.SendCustomMessage))
	f.action("appendLocalTip", Bind(s.AppendLocalTip))
	return s
}

func (s *BarrageService) SendTextMessage(ctx context.Context, p SendTextMessageParams) error {
	if !s.current(p.LiveID).AllowSendMessage {
		return ErrMessageDisabled
	}
	_, err := s.call(ctx, "sendTextMessage", p)
	return err
}

func (s *BarrageService) SendCustomMessage(ctx context.Context, p SendCustomMessageParams) error {
	if !s.current(p.LiveID).AllowSendMessage {
		return ErrMessageDisabled
	}
	_, err := s.call(ctx, "sendCustomMessage", p)
	return err
}

// AppendLocalTip shows a tip in the message list without sending it anywhere.
func (s *BarrageService) AppendLocalTip(_ context.Context, p LocalTipParams) error {
	if err := validate.Struct(p); err != nil {
		return invalid(err)
	}
	tip := domain.Barrage{
		LiveID:      p.LiveID,
		MessageType: domain.BarrageTip,
		TextContent: p.Text,
		Timestamp:   s.now().Unix(),
	}
	s.Apply(p.LiveID, func(st *BarrageState) {
		st.MessageList = appendCapped(st.MessageList, maxListLen, tip)
	})
	return nil
}
