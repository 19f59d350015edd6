package app

import (
	"context"
	"errors"

	"github.com/dkeye/LiveState/internal/bridge"
)

// Error codes shared by every transport.
const (
	CodeInvalidParams     = "INVALID_PARAMS"
	CodeNotFound          = "NOT_FOUND"
	CodeRateLimited       = "RATE_LIMITED"
	CodeNativeUnavailable = "NATIVE_UNAVAILABLE"
	CodeNativeError       = "NATIVE_ERROR"
	CodeTimeout           = "TIMEOUT"
	CodeCanceled          = "CANCELED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Code classifies err for clients.
func Code(err error) string {
	var apiErr *bridge.APIError
	switch {
	case errors.Is(err, ErrInvalidParams), errors.Is(err, ErrMissingLiveID),
		errors.Is(err, ErrUnknownGift), errors.Is(err, ErrMessageDisabled),
		errors.Is(err, ErrSelfConnection):
		return CodeInvalidParams
	case errors.Is(err, ErrUnknownStore), errors.Is(err, ErrUnknownAction):
		return CodeNotFound
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, bridge.ErrNativeUnavailable):
		return CodeNativeUnavailable
	case errors.As(err, &apiErr), errors.Is(err, bridge.ErrMalformedResponse):
		return CodeNativeError
	case errors.Is(err, bridge.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	default:
		return CodeInternal
	}
}
