package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/LiveState/internal/app"
	"github.com/dkeye/LiveState/internal/bridge"
)

type fakeNative struct {
	mu         sync.Mutex
	registered map[string]bool
	// gate, when set, holds every call until it is closed.
	gate chan struct{}
}

func (f *fakeNative) Invoke(ctx context.Context, _ string) (string, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return `{"code":0}`, nil
}

func (f *fakeNative) Register(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[key] = true
	return nil
}

func (f *fakeNative) Unregister(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registered, key)
	return nil
}

func (f *fakeNative) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.registered)
}

type harness struct {
	orch   *app.Orchestrator
	client *bridge.Client
	native *fakeNative
	srv    *httptest.Server
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, Config{SendBuffer: 16}, &fakeNative{registered: map[string]bool{}})
}

func newHarnessWith(t *testing.T, cfg Config, native *fakeNative) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	client := bridge.NewClient(native, bridge.CallOptions{})
	hub := app.NewHub(client, app.Options{}, nil)
	orch := app.NewOrchestrator(app.NewRegistry(), hub, app.SimplePolicy{}, app.NewRateLimiter(1, time.Minute))
	ctl := NewSignalWSController(orch, cfg)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set("client_token", "user-1")
		ctl.HandleSignal(ctx, c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &harness{orch: orch, client: client, native: native, srv: srv}
}

func (h *harness) dial(t *testing.T, codec string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws"
	if codec != "" {
		url += "?codec=" + codec
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type frame struct {
	Type    string         `json:"type"`
	ID      string         `json:"id"`
	SID     string         `json:"sid"`
	Codec   string         `json:"codec"`
	Store   string         `json:"store"`
	Key     string         `json:"key"`
	Version uint64         `json:"version"`
	State   map[string]any `json:"state"`
	OK      bool           `json:"ok"`
	Code    string         `json:"code"`
	Error   string         `json:"error"`
}

func send(t *testing.T, conn *websocket.Conn, codec Codec, v any) {
	t.Helper()
	b, err := codec.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(codec.MessageType(), b))
}

func read(t *testing.T, conn *websocket.Conn, codec Codec) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, codec.MessageType(), mt)
	var f frame
	require.NoError(t, codec.Unmarshal(data, &f))
	return f
}

func TestWelcomeAndPing(t *testing.T) {
	h := newHarness(t)
	codec := CodecFor("")
	conn := h.dial(t, "")

	w := read(t, conn, codec)
	assert.Equal(t, TypeWelcome, w.Type)
	assert.NotEmpty(t, w.SID)
	assert.Equal(t, "json", w.Codec)

	send(t, conn, codec, clientFrame{Type: TypePing})
	assert.Equal(t, TypePong, read(t, conn, codec).Type)
}

func TestSubscribeReplaysThenStreams(t *testing.T) {
	h := newHarness(t)
	codec := CodecFor("json")
	conn := h.dial(t, "json")
	read(t, conn, codec)

	send(t, conn, codec, clientFrame{Type: TypeSubscribe, Store: app.LikeStoreName, Room: "live_1"})
	replay := read(t, conn, codec)
	assert.Equal(t, TypeState, replay.Type)
	assert.Equal(t, app.LikeStoreName, replay.Store)
	assert.Equal(t, "live_1", replay.Key)
	assert.Equal(t, uint64(0), replay.Version)
	assert.Equal(t, TypeSubscribed, read(t, conn, codec).Type)

	key := bridge.NewListenerKey(app.LikeStoreName, "totalLikeCount", "live_1", "").String()
	require.True(t, h.client.Dispatch(key, []byte(`12`)))

	next := read(t, conn, codec)
	assert.Equal(t, uint64(1), next.Version)
	assert.EqualValues(t, 12, next.State["totalLikeCount"])
}

func TestSubscribeUnknownStore(t *testing.T) {
	h := newHarness(t)
	codec := CodecFor("")
	conn := h.dial(t, "")
	read(t, conn, codec)

	send(t, conn, codec, clientFrame{Type: TypeSubscribe, ID: "s1", Store: "NoSuchStore", Room: "live_1"})
	f := read(t, conn, codec)
	assert.Equal(t, TypeError, f.Type)
	assert.Equal(t, "s1", f.ID)
	assert.Equal(t, app.CodeNotFound, f.Code)
}

func TestActionResultAndRateLimit(t *testing.T) {
	h := newHarness(t)
	codec := CodecFor("")
	conn := h.dial(t, "")
	read(t, conn, codec)

	send(t, conn, codec, clientFrame{Type: TypeAction, ID: "a1", Store: app.LikeStoreName, Room: "live_1", Action: "sendLike", Params: map[string]any{"count": 2}})
	ok := read(t, conn, codec)
	assert.Equal(t, TypeActionResult, ok.Type)
	assert.Equal(t, "a1", ok.ID)
	assert.True(t, ok.OK)

	send(t, conn, codec, clientFrame{Type: TypeAction, ID: "a2", Store: app.LikeStoreName, Room: "live_1", Action: "sendLike"})
	limited := read(t, conn, codec)
	assert.Equal(t, "a2", limited.ID)
	assert.False(t, limited.OK)
	assert.Equal(t, app.CodeRateLimited, limited.Code)
}

func TestActionsInFlightAreBounded(t *testing.T) {
	gate := make(chan struct{})
	h := newHarnessWith(t, Config{SendBuffer: 16, MaxInflight: 1}, &fakeNative{registered: map[string]bool{}, gate: gate})
	codec := CodecFor("")
	conn := h.dial(t, "")
	read(t, conn, codec)

	send(t, conn, codec, clientFrame{Type: TypeAction, ID: "a1", Store: app.BaseBeautyStoreName, Action: "setSmoothLevel", Params: map[string]any{"level": 3}})
	send(t, conn, codec, clientFrame{Type: TypeAction, ID: "a2", Store: app.BaseBeautyStoreName, Action: "setWhitenessLevel", Params: map[string]any{"level": 3}})

	busy := read(t, conn, codec)
	assert.Equal(t, "a2", busy.ID)
	assert.False(t, busy.OK)
	assert.Equal(t, app.CodeRateLimited, busy.Code)

	close(gate)
	done := read(t, conn, codec)
	assert.Equal(t, "a1", done.ID)
	assert.True(t, done.OK)
}

func TestActionInvalidParams(t *testing.T) {
	h := newHarness(t)
	codec := CodecFor("")
	conn := h.dial(t, "")
	read(t, conn, codec)

	send(t, conn, codec, clientFrame{Type: TypeAction, ID: "a1", Store: app.BaseBeautyStoreName, Action: "setSmoothLevel", Params: map[string]any{"level": 42}})
	f := read(t, conn, codec)
	assert.False(t, f.OK)
	assert.Equal(t, app.CodeInvalidParams, f.Code)
}

func TestMsgpackCodec(t *testing.T) {
	h := newHarness(t)
	codec := CodecFor("msgpack")
	conn := h.dial(t, "msgpack")

	w := read(t, conn, codec)
	assert.Equal(t, "msgpack", w.Codec)

	send(t, conn, codec, clientFrame{Type: TypeSubscribe, Store: app.LikeStoreName, Room: "live_2"})
	replay := read(t, conn, codec)
	assert.Equal(t, TypeState, replay.Type)
	assert.Equal(t, "live_2", replay.Key)
	assert.Contains(t, replay.State, "totalLikeCount")
	assert.Equal(t, TypeSubscribed, read(t, conn, codec).Type)
}

func TestDisconnectReleasesSubscriptions(t *testing.T) {
	h := newHarness(t)
	codec := CodecFor("")
	conn := h.dial(t, "")
	read(t, conn, codec)

	send(t, conn, codec, clientFrame{Type: TypeSubscribe, Store: app.LikeStoreName, Room: "live_1"})
	read(t, conn, codec)
	read(t, conn, codec)
	require.Equal(t, 1, h.orch.Registry.Count())
	require.NotZero(t, h.native.count())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return h.orch.Registry.Count() == 0 && h.native.count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnsubscribe(t *testing.T) {
	h := newHarness(t)
	codec := CodecFor("")
	conn := h.dial(t, "")
	read(t, conn, codec)

	send(t, conn, codec, clientFrame{Type: TypeSubscribe, Store: app.LikeStoreName, Room: "live_1"})
	read(t, conn, codec)
	read(t, conn, codec)

	send(t, conn, codec, clientFrame{Type: TypeUnsubscribe, Store: app.LikeStoreName, Room: "live_1"})
	assert.Equal(t, TypeUnsubscribed, read(t, conn, codec).Type)
	assert.Zero(t, h.native.count())
}
