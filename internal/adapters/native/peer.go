package native

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/LiveState/internal/core"
)

var errPeerClosed = errors.New("native peer closed")

const writeWait = 5 * time.Second

type peer struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newPeer(id string, conn *websocket.Conn, buffer int) *peer {
	if buffer <= 0 {
		buffer = 256
	}
	return &peer{id: id, conn: conn, send: make(chan []byte, buffer)}
}

func (p *peer) trySend(b []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errPeerClosed
	}
	select {
	case p.send <- b:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (p *peer) sendFrame(f Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return p.trySend(b)
}

func (p *peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.send)
	_ = p.conn.Close()
}

func (p *peer) writePump(ctx context.Context, pingPeriod time.Duration) {
	var ping <-chan time.Time
	if pingPeriod > 0 {
		t := time.NewTicker(pingPeriod)
		defer t.Stop()
		ping = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "native").Str("peer", p.id).Msg("ping failed")
				return
			}
		case data, ok := <-p.send:
			if !ok {
				return
			}
			if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "native").Str("peer", p.id).Msg("writePump set deadline")
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "native").Str("peer", p.id).Msg("writePump write error")
				return
			}
		}
	}
}
