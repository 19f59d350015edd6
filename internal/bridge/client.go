package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
)

// Listener receives the raw event payload for one channel key.
type Listener func(data []byte)

// CallOptions control Call. Retry is the number of extra attempts after the first.
type CallOptions struct {
	Timeout    time.Duration
	Retry      int
	RetryDelay time.Duration
}

type CallOption func(*CallOptions)

func WithTimeout(d time.Duration) CallOption { return func(o *CallOptions) { o.Timeout = d } }

func WithRetry(n int, delay time.Duration) CallOption {
	return func(o *CallOptions) {
		o.Retry = n
		o.RetryDelay = delay
	}
}

type Stats struct {
	Calls     int64 `json:"calls"`
	Failures  int64 `json:"failures"`
	Events    int64 `json:"events"`
	Listeners int   `json:"listeners"`
}

type Client struct {
	transport Transport
	defaults  CallOptions

	mu        sync.RWMutex
	listeners map[string]Listener

	calls    atomic.Int64
	failures atomic.Int64
	events   atomic.Int64
}

func NewClient(t Transport, defaults CallOptions) *Client {
	return &Client{
		transport: t,
		defaults:  defaults,
		listeners: make(map[string]Listener),
	}
}

// CallAPI sends one request and parses the response. A non-zero code is not an
// error here; see Call.
func (c *Client) CallAPI(ctx context.Context, req Request) (*Response, error) {
	if c.transport == nil {
		return nil, ErrNativeUnavailable
	}
	c.calls.Inc()
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", req.API, err)
	}
	raw, err := c.transport.Invoke(ctx, string(payload))
	if err != nil {
		return nil, err
	}
	data, err := Normalize([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%w: %s response is not an object", ErrMalformedResponse, req.API)
	}
	if code := gjson.GetBytes(data, "code"); code.Type != gjson.Number {
		return nil, fmt.Errorf("%w: %s response has no numeric code", ErrMalformedResponse, req.API)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.API == "" {
		resp.API = req.API
	}
	return &resp, nil
}

// Call invokes api with per-attempt timeout and fixed-delay retry. It makes at
// most Retry+1 attempts and fails only when all of them failed; a non-zero
// response code counts as a failed attempt.
func (c *Client) Call(ctx context.Context, api string, params any, opts ...CallOption) (*Response, error) {
	o := c.defaults
	for _, opt := range opts {
		opt(&o)
	}
	if o.Retry < 0 {
		o.Retry = 0
	}

	var result *Response
	op := func() error {
		actx, cancel := ctx, context.CancelFunc(func() {})
		if o.Timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, o.Timeout)
		}
		defer cancel()

		resp, err := c.CallAPI(actx, Request{API: api, Params: params})
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s after %s", ErrTimeout, api, o.Timeout)
			}
			return err
		}
		if !resp.OK() {
			return &APIError{API: resp.API, Code: resp.Code, Message: resp.Message}
		}
		result = resp
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(o.RetryDelay), uint64(o.Retry)),
		ctx,
	)
	err := backoff.RetryNotify(op, b, func(err error, next time.Duration) {
		log.Warn().Err(err).Str("module", "bridge").Str("api", api).Dur("retry_in", next).Msg("native call failed, retrying")
	})
	if err != nil {
		c.failures.Inc()
		return nil, err
	}
	return result, nil
}

// AddListener binds fn to key. A second call with the same key replaces the
// previous listener without registering the channel again.
func (c *Client) AddListener(key string, fn Listener) error {
	c.mu.Lock()
	_, existed := c.listeners[key]
	c.listeners[key] = fn
	c.mu.Unlock()

	if existed {
		log.Debug().Str("module", "bridge").Str("key", key).Msg("listener replaced")
		return nil
	}
	return c.register(key)
}

func (c *Client) RemoveListener(key string) error {
	c.mu.Lock()
	_, existed := c.listeners[key]
	delete(c.listeners, key)
	c.mu.Unlock()

	if !existed || c.transport == nil {
		return nil
	}
	if err := c.transport.Unregister(key); err != nil && !errors.Is(err, ErrNativeUnavailable) {
		return fmt.Errorf("unregister listener: %w", err)
	}
	return nil
}

func (c *Client) register(key string) error {
	if c.transport == nil {
		return nil
	}
	if err := c.transport.Register(key); err != nil {
		if errors.Is(err, ErrNativeUnavailable) {
			log.Debug().Str("module", "bridge").Str("key", key).Msg("native not connected, registration deferred")
			return nil
		}
		return fmt.Errorf("register listener: %w", err)
	}
	return nil
}

// Dispatch routes an incoming native event to the listener for key.
func (c *Client) Dispatch(key string, data []byte) bool {
	c.mu.RLock()
	fn, ok := c.listeners[key]
	c.mu.RUnlock()
	if !ok {
		log.Debug().Str("module", "bridge").Str("key", key).Msg("event without listener")
		return false
	}
	c.events.Inc()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "bridge").Str("key", key).Interface("panic", r).Msg("listener panicked")
		}
	}()
	fn(data)
	return true
}

// Keys returns the registered channel keys, used to resync a reconnected peer.
func (c *Client) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.listeners))
	for k := range c.listeners {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Client) Stats() Stats {
	c.mu.RLock()
	n := len(c.listeners)
	c.mu.RUnlock()
	return Stats{
		Calls:     c.calls.Load(),
		Failures:  c.failures.Load(),
		Events:    c.events.Load(),
		Listeners: n,
	}
}
