package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/LiveState/internal/app"
	"github.com/dkeye/LiveState/internal/core"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.send(conn, pongFrame{Type: TypePong})
}

func (ctl *SignalWSController) handleSubscribe(sid core.SessionID, conn *WsSignalConn, f clientFrame) {
	if err := ctl.Orch.Subscribe(sid, f.Store, f.Room); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("store", f.Store).Msg("subscribe failed")
		ctl.send(conn, errorFrame{Type: TypeError, ID: f.ID, Code: app.Code(err), Error: err.Error()})
		return
	}
	// The replayed snapshot is already queued ahead of the ack.
	ctl.send(conn, ackFrame{Type: TypeSubscribed, Store: f.Store, Room: f.Room})
}

func (ctl *SignalWSController) handleUnsubscribe(sid core.SessionID, conn *WsSignalConn, f clientFrame) {
	if err := ctl.Orch.Unsubscribe(sid, f.Store, f.Room); err != nil {
		ctl.send(conn, errorFrame{Type: TypeError, ID: f.ID, Code: app.Code(err), Error: err.Error()})
		return
	}
	ctl.send(conn, ackFrame{Type: TypeUnsubscribed, Store: f.Store, Room: f.Room})
}

func (ctl *SignalWSController) handleAction(ctx context.Context, sid core.SessionID, conn *WsSignalConn, f clientFrame) {
	var params json.RawMessage
	if f.Params != nil {
		b, err := json.Marshal(f.Params)
		if err != nil {
			ctl.send(conn, actionResultFrame{Type: TypeActionResult, ID: f.ID, Code: app.CodeInvalidParams, Error: err.Error()})
			return
		}
		params = b
	}

	user := ctl.Orch.Registry.UserOf(sid)
	data, err := ctl.Orch.Action(ctx, user, f.Store, f.Room, f.Action, params)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("store", f.Store).Str("action", f.Action).Msg("action failed")
		ctl.send(conn, actionResultFrame{Type: TypeActionResult, ID: f.ID, Code: app.Code(err), Error: err.Error()})
		return
	}
	ctl.send(conn, actionResultFrame{Type: TypeActionResult, ID: f.ID, OK: true, Data: plain(data)})
}
