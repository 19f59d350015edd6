package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterState struct {
	Count int
	Tags  []string
}

func newCounterStore(opts ...Option[counterState]) *Store[counterState] {
	return NewStore("CounterStore", func() counterState { return counterState{Tags: []string{}} }, opts...)
}

func TestStoreGetCreatesDefault(t *testing.T) {
	s := newCounterStore()
	st := s.Get("room-1")
	assert.Equal(t, 0, st.Count)
	assert.NotNil(t, st.Tags)
	assert.Equal(t, []string{"room-1"}, s.Keys())

	_, ok := s.Peek("room-2")
	assert.False(t, ok)
	assert.Equal(t, []string{"room-1"}, s.Keys())
}

func TestStoreSubscribeReplaysFirst(t *testing.T) {
	s := newCounterStore()
	s.Update("room-1", func(st *counterState) { st.Count = 5 })

	var got []Snapshot[counterState]
	unsub := s.Subscribe("room-1", func(snap Snapshot[counterState]) {
		got = append(got, snap)
	})
	defer unsub()

	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].State.Count)
	assert.Equal(t, uint64(1), got[0].Version)
	assert.Equal(t, "CounterStore", got[0].Store)

	s.Update("room-1", func(st *counterState) { st.Count++ })
	require.Len(t, got, 2)
	assert.Equal(t, 6, got[1].State.Count)
	assert.Equal(t, uint64(2), got[1].Version)
}

func TestStorePartitionsAreIndependent(t *testing.T) {
	s := newCounterStore()
	var calls int
	unsub := s.Subscribe("room-1", func(Snapshot[counterState]) { calls++ })
	defer unsub()

	s.Update("room-2", func(st *counterState) { st.Count = 3 })
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, s.Get("room-1").Count)
	assert.Equal(t, 3, s.Get("room-2").Count)
}

func TestStoreUnsubscribe(t *testing.T) {
	s := newCounterStore()
	var calls int
	unsub := s.Subscribe("room-1", func(Snapshot[counterState]) { calls++ })
	unsub()
	unsub()

	s.Update("room-1", func(st *counterState) { st.Count++ })
	assert.Equal(t, 1, calls)
}

func TestStoreClearRemovesStateAndListeners(t *testing.T) {
	s := newCounterStore()
	var calls int
	s.Subscribe("room-1", func(Snapshot[counterState]) { calls++ })
	s.Update("room-1", func(st *counterState) { st.Count = 9 })
	require.Equal(t, 2, calls)

	s.Clear("room-1")
	_, ok := s.Peek("room-1")
	assert.False(t, ok)

	s.Update("room-1", func(st *counterState) { st.Count++ })
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, s.Get("room-1").Count)
}

func TestStoreClearAll(t *testing.T) {
	s := newCounterStore()
	s.Get("a")
	s.Get("b")
	s.ClearAll()
	assert.Empty(t, s.Keys())
}

func TestStoreListenerPanicIsContained(t *testing.T) {
	s := newCounterStore()
	var after int
	s.Subscribe("room-1", func(snap Snapshot[counterState]) {
		if snap.Version > 0 {
			panic("boom")
		}
	})
	s.Subscribe("room-1", func(Snapshot[counterState]) { after++ })

	assert.NotPanics(t, func() {
		s.Update("room-1", func(st *counterState) { st.Count++ })
	})
	assert.Equal(t, 2, after)
}

func TestStoreReentrantUpdateIsQueued(t *testing.T) {
	s := newCounterStore()
	var seen []int
	s.Subscribe("room-1", func(snap Snapshot[counterState]) {
		seen = append(seen, snap.State.Count)
		if snap.State.Count > 0 && snap.State.Count < 3 {
			s.Update("room-1", func(st *counterState) { st.Count++ })
		}
	})

	s.Update("room-1", func(st *counterState) { st.Count = 1 })
	assert.Equal(t, []int{0, 1, 2, 3}, seen)
	assert.Equal(t, 3, s.Get("room-1").Count)
}

func TestStoreObserverSeesMutationsOnly(t *testing.T) {
	var observed []uint64
	s := newCounterStore(WithObserver(func(snap Snapshot[counterState]) {
		observed = append(observed, snap.Version)
	}))
	s.Subscribe("room-1", func(Snapshot[counterState]) {})
	s.Update("room-1", func(st *counterState) { st.Count++ })
	s.Update("room-1", func(st *counterState) { st.Count++ })
	assert.Equal(t, []uint64{1, 2}, observed)
}

func TestStoreConcurrentUpdatesAreOrdered(t *testing.T) {
	s := newCounterStore()
	var (
		mu   sync.Mutex
		last uint64
		bad  bool
	)
	s.Subscribe("room-1", func(snap Snapshot[counterState]) {
		mu.Lock()
		defer mu.Unlock()
		if snap.Version < last {
			bad = true
		}
		last = snap.Version
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update("room-1", func(st *counterState) { st.Count++ })
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Get("room-1").Count)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, bad)
	assert.Equal(t, uint64(50), last)
}
