package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/domain"
)

type nativeCall struct {
	API    string          `json:"api"`
	Params json.RawMessage `json:"params"`
}

// fakeNative answers every call with code 0 unless a reply is set for the api.
type fakeNative struct {
	mu         sync.Mutex
	calls      []nativeCall
	replies    map[string]string
	registered map[string]bool
}

func newFakeNative() *fakeNative {
	return &fakeNative{replies: map[string]string{}, registered: map[string]bool{}}
}

func (f *fakeNative) Invoke(_ context.Context, request string) (string, error) {
	var c nativeCall
	if err := json.Unmarshal([]byte(request), &c); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if r, ok := f.replies[c.API]; ok {
		return r, nil
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

func (f *fakeNative) reply(api, resp string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[api] = resp
}

func (f *fakeNative) apis() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.API)
	}
	return out
}

func (f *fakeNative) lastParams(t *testing.T, v any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	require.NoError(t, json.Unmarshal(f.calls[len(f.calls)-1].Params, v))
}

func (f *fakeNative) registeredCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.registered)
}

type fakeArchiver struct {
	mu    sync.Mutex
	saved map[string]domain.LiveSummaryData
}

func (a *fakeArchiver) Archive(_ context.Context, liveID string, data domain.LiveSummaryData) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.saved == nil {
		a.saved = map[string]domain.LiveSummaryData{}
	}
	a.saved[liveID] = data
	return nil
}

type testEnv struct {
	hub     *Hub
	native  *fakeNative
	client  *bridge.Client
	archive *fakeArchiver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	native := newFakeNative()
	client := bridge.NewClient(native, bridge.CallOptions{})
	archive := &fakeArchiver{}
	return &testEnv{
		hub:     NewHub(client, Options{}, archive),
		native:  native,
		client:  client,
		archive: archive,
	}
}

// emit delivers a native event the way the transport would.
func (e *testEnv) emit(t *testing.T, store, event, room, payload string) {
	t.Helper()
	key := bridge.NewListenerKey(store, event, room, "").String()
	require.True(t, e.client.Dispatch(key, []byte(payload)), "no listener for %s", key)
}

func version(m Module, key string) uint64 { return m.Snapshot(key).Version }
