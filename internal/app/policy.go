package app

import (
	"fmt"

	"github.com/dkeye/LiveState/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a subscriber whose send buffer is full.
type Policy interface {
	OnBackPressure(sid core.SessionID, snap core.Snapshot[any]) BackpressureAction
}

// SimplePolicy disconnects slow subscribers; they resubscribe and get a fresh replay.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.SessionID, core.Snapshot[any]) BackpressureAction {
	return KickMember
}

// DropPolicy skips the frame. The next snapshot carries the full state anyway.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.SessionID, core.Snapshot[any]) BackpressureAction {
	return DropFrame
}

func PolicyFor(name string) (Policy, error) {
	switch name {
	case "", "kick":
		return SimplePolicy{}, nil
	case "drop":
		return DropPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown slow subscriber policy %q", name)
	}
}
