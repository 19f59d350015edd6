// Package bridge talks to the native SDK peer: JSON request/response calls plus
// keyed event channels.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNativeUnavailable = errors.New("native module unavailable")
	ErrMalformedResponse = errors.New("malformed native response")
	ErrMalformedPayload  = errors.New("malformed event payload")
	ErrTimeout           = errors.New("native call timed out")
)

// Request is what the native peer receives, serialized to a JSON string.
type Request struct {
	API    string `json:"api"`
	Params any    `json:"params,omitempty"`
}

// Response is the native answer. Code 0 is success.
type Response struct {
	API     string          `json:"api"`
	Code    int             `json:"code"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (r *Response) OK() bool { return r.Code == 0 }

// APIError is a non-zero native response code.
type APIError struct {
	API     string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("native %s failed: code %d", e.API, e.Code)
	}
	return fmt.Sprintf("native %s failed: code %d: %s", e.API, e.Code, e.Message)
}

// Transport is the opaque native peer.
// Invoke must honor ctx; Register and Unregister may return ErrNativeUnavailable
// while no peer is connected, the client re-registers on reconnect.
type Transport interface {
	Invoke(ctx context.Context, request string) (string, error)
	Register(key string) error
	Unregister(key string) error
}
