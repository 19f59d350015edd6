package app

import (
	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/domain"
)

const LiveSummaryStoreName = "LiveSummaryStore"

type LiveSummaryState struct {
	SummaryData domain.LiveSummaryData `json:"summaryData"`
}

type LiveSummaryService struct {
	*Feature[LiveSummaryState]
}

func NewLiveSummaryService(b *bridge.Client, opts Options) *LiveSummaryService {
	f := newFeature(LiveSummaryStoreName, ScopeRoom, func() LiveSummaryState { return LiveSummaryState{} }, b, opts)
	f.handle("summaryData", On(func(st *LiveSummaryState, v domain.LiveSummaryData) { st.SummaryData = v }))
	return &LiveSummaryService{Feature: f}
}

// Current returns the last tally for liveID without creating the partition.
func (s *LiveSummaryService) Current(liveID string) (domain.LiveSummaryData, bool) {
	snap, ok := s.Store().Peek(s.Partition(liveID))
	if !ok {
		return domain.LiveSummaryData{}, false
	}
	return snap.State.SummaryData, true
}
