// Package native connects the bridge client to the native SDK peer over a
// WebSocket. Only one peer is active at a time; a new connection replaces it.
package native

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"github.com/dkeye/LiveState/internal/bridge"
)

const HeaderToken = "X-Native-Token"

type Config struct {
	Token      string
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
}

// Dispatcher receives native events and lists the keys to re-register.
type Dispatcher interface {
	Dispatch(key string, data []byte) bool
	Keys() []string
}

type callResult struct {
	response string
	err      error
}

type pendingCall struct {
	peer *peer
	ch   chan callResult
}

// Transport implements bridge.Transport on top of the active peer.
type Transport struct {
	cfg      Config
	dispatch Dispatcher

	mu      sync.Mutex
	peer    *peer
	pending map[string]*pendingCall

	connected atomic.Bool
	peers     atomic.Int64
}

func New(cfg Config) *Transport {
	return &Transport{cfg: cfg, pending: make(map[string]*pendingCall)}
}

// SetDispatcher must be called before the first peer connects.
func (t *Transport) SetDispatcher(d Dispatcher) { t.dispatch = d }

func (t *Transport) Connected() bool { return t.connected.Load() }

type Stats struct {
	Connected bool  `json:"connected"`
	Pending   int   `json:"pending"`
	Peers     int64 `json:"peers"`
}

func (t *Transport) Stats() Stats {
	t.mu.Lock()
	n := len(t.pending)
	t.mu.Unlock()
	return Stats{Connected: t.connected.Load(), Pending: n, Peers: t.peers.Load()}
}

func (t *Transport) Invoke(ctx context.Context, request string) (string, error) {
	id := uuid.NewString()
	pc := &pendingCall{ch: make(chan callResult, 1)}

	t.mu.Lock()
	p := t.peer
	if p == nil {
		t.mu.Unlock()
		return "", bridge.ErrNativeUnavailable
	}
	pc.peer = p
	t.pending[id] = pc
	t.mu.Unlock()

	if err := p.sendFrame(Frame{Type: FrameCall, ID: id, Request: request}); err != nil {
		t.forget(id)
		return "", fmt.Errorf("%w: %v", bridge.ErrNativeUnavailable, err)
	}

	select {
	case <-ctx.Done():
		t.forget(id)
		return "", ctx.Err()
	case res := <-pc.ch:
		return res.response, res.err
	}
}

func (t *Transport) Register(key string) error {
	return t.control(Frame{Type: FrameAddListener, Key: key})
}

func (t *Transport) Unregister(key string) error {
	return t.control(Frame{Type: FrameRemoveListener, Key: key})
}

func (t *Transport) control(f Frame) error {
	t.mu.Lock()
	p := t.peer
	t.mu.Unlock()
	if p == nil {
		return bridge.ErrNativeUnavailable
	}
	if err := p.sendFrame(f); err != nil {
		return fmt.Errorf("%w: %v", bridge.ErrNativeUnavailable, err)
	}
	return nil
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates and upgrades the native peer connection.
func (t *Transport) Handle(ctx context.Context, c *gin.Context) {
	if t.cfg.Token != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(HeaderToken)), []byte(t.cfg.Token)) != 1 {
		log.Warn().Str("module", "native").Str("ip", c.ClientIP()).Msg("rejected native peer: bad token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "native").Msg("ws upgrade")
		return
	}
	t.Serve(ctx, ws)
}

// Serve makes ws the active peer and re-registers every known listener key.
func (t *Transport) Serve(ctx context.Context, ws *websocket.Conn) {
	if t.cfg.ReadLimit > 0 {
		ws.SetReadLimit(t.cfg.ReadLimit)
	}
	if t.cfg.PingPeriod > 0 {
		pongWait := t.cfg.PingPeriod * 10 / 9
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error { return ws.SetReadDeadline(time.Now().Add(pongWait)) })
	}

	p := newPeer(uuid.NewString(), ws, t.cfg.SendBuffer)
	t.mu.Lock()
	old := t.peer
	t.peer = p
	t.mu.Unlock()
	t.connected.Store(true)
	t.peers.Inc()

	if old != nil {
		log.Info().Str("module", "native").Str("old", old.id).Str("peer", p.id).Msg("native peer replaced")
		old.close()
		t.failPending(old)
	}

	ctx, cancel := context.WithCancel(ctx)
	go p.writePump(ctx, t.cfg.PingPeriod)
	t.resync(p)
	go t.readPump(ctx, cancel, p)
	log.Info().Str("module", "native").Str("peer", p.id).Msg("native peer connected")
}

func (t *Transport) resync(p *peer) {
	if t.dispatch == nil {
		return
	}
	keys := t.dispatch.Keys()
	for _, k := range keys {
		if err := p.sendFrame(Frame{Type: FrameAddListener, Key: k}); err != nil {
			log.Error().Err(err).Str("module", "native").Str("key", k).Msg("resync listener")
		}
	}
	if len(keys) > 0 {
		log.Info().Str("module", "native").Int("keys", len(keys)).Msg("listeners re-registered")
	}
}

func (t *Transport) readPump(ctx context.Context, cancel context.CancelFunc, p *peer) {
	defer func() {
		cancel()
		p.close()
		t.detach(p)
		log.Info().Str("module", "native").Str("peer", p.id).Msg("native peer disconnected")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := p.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "native").Str("peer", p.id).Msg("readPump read error")
				return
			}
			t.handleFrame(p, data)
		}
	}
}

func (t *Transport) handleFrame(p *peer, data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		log.Warn().Err(err).Str("module", "native").Msg("bad frame")
		return
	}
	switch f.Type {
	case FrameResult:
		t.resolve(f)
	case FrameEvent:
		if t.dispatch != nil {
			t.dispatch.Dispatch(f.Key, f.Data)
		}
	case FramePing:
		_ = p.sendFrame(Frame{Type: FramePong})
	case FramePong:
	default:
		log.Warn().Str("module", "native").Str("type", f.Type).Msg("unknown frame")
	}
}

func (t *Transport) resolve(f Frame) {
	t.mu.Lock()
	pc, ok := t.pending[f.ID]
	delete(t.pending, f.ID)
	t.mu.Unlock()
	if !ok {
		log.Debug().Str("module", "native").Str("id", f.ID).Msg("result for unknown call")
		return
	}
	if f.Error != "" {
		pc.ch <- callResult{err: fmt.Errorf("native: %s", f.Error)}
		return
	}
	pc.ch <- callResult{response: string(f.Response)}
}

func (t *Transport) forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, id)
}

func (t *Transport) detach(p *peer) {
	t.mu.Lock()
	if t.peer == p {
		t.peer = nil
		t.connected.Store(false)
	}
	t.mu.Unlock()
	t.failPending(p)
}

// failPending fails every call sent to p.
func (t *Transport) failPending(p *peer) {
	t.mu.Lock()
	var failed []*pendingCall
	for id, pc := range t.pending {
		if pc.peer == p {
			failed = append(failed, pc)
			delete(t.pending, id)
		}
	}
	t.mu.Unlock()
	for _, pc := range failed {
		pc.ch <- callResult{err: bridge.ErrNativeUnavailable}
	}
}
