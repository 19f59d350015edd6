// Package signal serves subscriber WebSocket sessions: clients subscribe to
// store partitions, receive state snapshots and run store actions.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/LiveState/internal/app"
	"github.com/dkeye/LiveState/internal/core"
)

var errClosed = errors.New("connection closed")

// Config tunes subscriber connections. MaxInflight bounds the actions one
// connection may run at once.
type Config struct {
	SendBuffer   int
	MaxInflight  int
	ReadLimit    int64
	PingPeriod   time.Duration
	WriteTimeout time.Duration
}

type SignalWSController struct {
	Orch *app.Orchestrator
	cfg  Config
}

func NewSignalWSController(o *app.Orchestrator, cfg Config) *SignalWSController {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.MaxInflight <= 0 {
		cfg.MaxInflight = 8
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &SignalWSController{Orch: o, cfg: cfg}
}

type WsSignalConn struct {
	conn     *websocket.Conn
	codec    Codec
	send     chan core.Frame
	inflight chan struct{}

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// encoder renders snapshots as state frames in the connection's codec.
func encoder(codec Codec) core.Encoder {
	return func(snap core.Snapshot[any]) (core.Frame, error) {
		return codec.Marshal(stateFrame{
			Type:    TypeState,
			Store:   snap.Store,
			Key:     snap.Key,
			Version: snap.Version,
			State:   snap.State,
		})
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades a subscriber connection. Every connection is its own
// session; the client token only identifies the user for rate limiting.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(uuid.NewString())
	user := c.GetString("client_token")
	codec := CodecFor(c.Query("codec"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", user).Str("codec", codec.Name()).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.cfg.ReadLimit)
	}
	if ctl.cfg.PingPeriod > 0 {
		pongWait := ctl.cfg.PingPeriod * 10 / 9
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error { return ws.SetReadDeadline(time.Now().Add(pongWait)) })
	}

	conn := &WsSignalConn{
		conn:     ws,
		codec:    codec,
		send:     make(chan core.Frame, ctl.cfg.SendBuffer),
		inflight: make(chan struct{}, ctl.cfg.MaxInflight),
	}
	sctx := ctl.Orch.Registry.Bind(ctx, sid, user, conn, encoder(codec))

	go ctl.writePump(sctx, conn)
	ctl.send(conn, welcomeFrame{Type: TypeWelcome, SID: string(sid), Codec: codec.Name()})
	go ctl.readPump(sctx, sid, conn)
}
