package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/LiveState/internal/app"
	"github.com/dkeye/LiveState/internal/core"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	var ping <-chan time.Time
	if ctl.cfg.PingPeriod > 0 {
		t := time.NewTicker(ctl.cfg.PingPeriod)
		defer t.Stop()
		ping = t.C
	}
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.cfg.WriteTimeout)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(c.codec.MessageType(), data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(ctx, sid, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, sid core.SessionID, c *WsSignalConn, data []byte) {
	var f clientFrame
	if err := c.codec.Unmarshal(data, &f); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad frame")
		ctl.send(c, errorFrame{Type: TypeError, Code: "BAD_FRAME", Error: "bad_payload"})
		return
	}

	switch f.Type {
	case TypeSubscribe:
		ctl.handleSubscribe(sid, c, f)
	case TypeUnsubscribe:
		ctl.handleUnsubscribe(sid, c, f)
	case TypeAction:
		// Native calls can block for the whole call timeout; keep reading meanwhile.
		select {
		case c.inflight <- struct{}{}:
		default:
			log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("action", f.Action).Msg("too many actions in flight")
			ctl.send(c, actionResultFrame{Type: TypeActionResult, ID: f.ID, Code: app.CodeRateLimited, Error: "too many actions in flight"})
			return
		}
		go func() {
			defer func() { <-c.inflight }()
			ctl.handleAction(ctx, sid, c, f)
		}()
	case TypePing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", f.Type).Msg("unknown signal")
		ctl.send(c, errorFrame{Type: TypeError, ID: f.ID, Code: "UNKNOWN_TYPE", Error: "unknown frame type " + f.Type})
	}
}

func (ctl *SignalWSController) send(c *WsSignalConn, v any) {
	b, err := c.codec.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("send marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("send dropped")
	}
}
