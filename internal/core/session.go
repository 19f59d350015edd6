package core

import "errors"

// ErrBackpressure is returned by TrySend when the outbound buffer is full.
var ErrBackpressure = errors.New("backpressure")

// Frame is one encoded message for a subscriber.
type Frame []byte

type SessionID string

// SignalConnection abstracts a subscriber's messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Encoder renders a snapshot in the codec a connection negotiated.
type Encoder func(Snapshot[any]) (Frame, error)
