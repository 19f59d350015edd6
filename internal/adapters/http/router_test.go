package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/LiveState/internal/adapters/native"
	"github.com/dkeye/LiveState/internal/adapters/signal"
	"github.com/dkeye/LiveState/internal/app"
	"github.com/dkeye/LiveState/internal/archive"
	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/config"
	"github.com/dkeye/LiveState/internal/domain"
)

type fakeNative struct {
	mu      sync.Mutex
	replies map[string]string
}

func (f *fakeNative) Invoke(_ context.Context, request string) (string, error) {
	var req bridge.Request
	if err := json.Unmarshal([]byte(request), &req); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.replies[req.API]; ok {
		return r, nil
	}
	return `{"code":0}`, nil
}

func (f *fakeNative) Register(string) error   { return nil }
func (f *fakeNative) Unregister(string) error { return nil }

type fakeSummaries struct {
	byLive map[string][]archive.Summary
}

func (f *fakeSummaries) ListByLive(_ context.Context, liveID string, _ int) ([]archive.Summary, error) {
	return f.byLive[liveID], nil
}

func (f *fakeSummaries) Recent(context.Context, int) ([]archive.Summary, error) {
	var out []archive.Summary
	for _, s := range f.byLive {
		out = append(out, s...)
	}
	return out, nil
}

type testServer struct {
	router *gin.Engine
	native *fakeNative
	orch   *app.Orchestrator
}

func newTestServer(t *testing.T, summaries SummaryReader) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	fn := &fakeNative{replies: map[string]string{}}
	client := bridge.NewClient(fn, bridge.CallOptions{})
	hub := app.NewHub(client, app.Options{}, nil)
	orch := app.NewOrchestrator(app.NewRegistry(), hub, app.SimplePolicy{}, app.NewRateLimiter(1, time.Minute))

	cfg := &config.Config{Mode: "test", Secret: "test-secret"}
	r := SetupRouter(ctx, cfg, Deps{
		Orch:      orch,
		Bridge:    client,
		Native:    native.New(native.Config{}),
		Signal:    signal.NewSignalWSController(orch, signal.Config{}),
		Summaries: summaries,
	})
	return &testServer{router: r, native: fn, orch: orch}
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: "ct", Value: "user-1"})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	w, resp := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, string(resp.Data), `"native":{"connected":false`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestClientTokenCookieIssued(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Contains(t, w.Header().Values("Set-Cookie")[0], "ct=")
}

func TestListStores(t *testing.T) {
	s := newTestServer(t, nil)
	w, resp := s.do(t, http.MethodGet, "/api/stores", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stores []storeInfo
	require.NoError(t, json.Unmarshal(resp.Data, &stores))
	require.Len(t, stores, 11)
	assert.Equal(t, app.LoginStoreName, stores[0].Name)
	assert.Equal(t, "global", stores[0].Scope)
	assert.Contains(t, stores[0].Actions, "login")
}

func TestSnapshot(t *testing.T) {
	s := newTestServer(t, nil)

	w, resp := s.do(t, http.MethodGet, "/api/stores/LikeStore?room=live_1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"store":"LikeStore","key":"live_1","version":0,"state":{"totalLikeCount":0,"recentLikes":[]}}`,
		string(resp.Data))

	w, resp = s.do(t, http.MethodGet, "/api/stores/LikeStore", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, app.CodeInvalidParams, resp.Error.Code)

	w, resp = s.do(t, http.MethodGet, "/api/stores/NoSuchStore", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
}

func TestActionStatuses(t *testing.T) {
	s := newTestServer(t, nil)

	w, resp := s.do(t, http.MethodPost, "/api/stores/LikeStore/actions/sendLike?room=live_1", `{"count":3}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	w, resp = s.do(t, http.MethodPost, "/api/stores/LikeStore/actions/sendLike?room=live_1", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, app.CodeRateLimited, resp.Error.Code)

	w, _ = s.do(t, http.MethodPost, "/api/stores/BaseBeautyStore/actions/setSmoothLevel", `{"level":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/stores/BaseBeautyStore/actions/setSmoothLevel", `{"level":12}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/stores/BaseBeautyStore/actions/noSuchAction", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.native.mu.Lock()
	s.native.replies["login"] = `{"code":6206,"message":"sig expired"}`
	s.native.mu.Unlock()
	w, resp = s.do(t, http.MethodPost, "/api/stores/LoginStore/actions/login",
		`{"sdkAppID":1400000000,"userID":"anchor","userSig":"sig"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, app.CodeNativeError, resp.Error.Code)
}

func TestClearPartitionRoute(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, s.orch.Hub.Like.Attach("live_1"))

	w, _ := s.do(t, http.MethodDelete, "/api/stores/LikeStore?room=live_1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, s.orch.Hub.Like.Attached("live_1"))
}

func TestSummaries(t *testing.T) {
	w, resp := newTestServer(t, nil).do(t, http.MethodGet, "/api/summaries", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, app.CodeNotFound, resp.Error.Code)

	reader := &fakeSummaries{byLive: map[string][]archive.Summary{
		"live_1": {{ID: "a", LiveID: "live_1", LiveSummaryData: domain.LiveSummaryData{TotalViewers: 9}}},
	}}
	s := newTestServer(t, reader)

	w, resp = s.do(t, http.MethodGet, "/api/summaries?live_id=live_1&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got []archive.Summary
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, 9, got[0].TotalViewers)

	w, _ = s.do(t, http.MethodGet, "/api/summaries?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
