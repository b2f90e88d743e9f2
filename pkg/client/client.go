// Copyright (c) 2025, The calory-counter Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/calory-counter/catalog/pkg/defaults"
	cerrors "github.com/calory-counter/catalog/pkg/errors"
	"github.com/calory-counter/catalog/pkg/food"
	"github.com/calory-counter/catalog/pkg/protocol"
)

const (
	// DefaultHost is the catalog server host used when none is given.
	DefaultHost = "127.0.0.1"

	// maxPrealloc caps the capacity reserved from a COUNT reply.
	maxPrealloc = 64
)

// ErrNotConnected is returned by requests made before Connect succeeded or
// after a transport failure closed the connection.
var ErrNotConnected = cerrors.New(cerrors.ErrCodeUnavailable, "not connected")

// Client talks to a catalog server over one connection. Requests are
// serialized, so a Client may be shared between goroutines.
type Client struct {
	host           string
	port           int
	connectTimeout time.Duration
	retryDelay     time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	logger         *slog.Logger

	mu    sync.Mutex
	conn  net.Conn
	codec *protocol.Codec
}

// Option is a functional option for configuring Client instances.
type Option func(*Client)

// WithHost sets the server host.
func WithHost(host string) Option {
	return func(c *Client) {
		c.host = host
	}
}

// WithPort sets the server port.
func WithPort(port int) Option {
	return func(c *Client) {
		c.port = port
	}
}

// WithConnectTimeout bounds each dial attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.connectTimeout = d
	}
}

// WithRetryDelay sets the pause between failed dial attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithReadTimeout bounds the wait for each reply frame.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.readTimeout = d
	}
}

// WithWriteTimeout bounds each frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.writeTimeout = d
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New returns an unconnected client.
func New(opts ...Option) *Client {
	c := &Client{
		host:           DefaultHost,
		port:           defaults.ServerPort,
		connectTimeout: defaults.ClientConnectTimeout,
		retryDelay:     defaults.ClientRetryDelay,
		readTimeout:    defaults.ClientReadTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the host:port the client dials.
func (c *Client) Address() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// Connect dials the server, retrying every retry delay until a dial
// succeeds or ctx ends. An existing connection is closed first.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.closeLocked()

	dialer := net.Dialer{Timeout: c.connectTimeout}
	limiter := rate.NewLimiter(rate.Every(c.retryDelay), 1)
	addr := c.Address()

	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return cerrors.WrapWithContext(cerrors.ErrCodeUnavailable, "connect canceled",
				err, map[string]any{"address": addr, "attempts": attempt - 1})
		}

		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			if ctx.Err() != nil {
				return cerrors.WrapWithContext(cerrors.ErrCodeUnavailable, "connect canceled",
					ctx.Err(), map[string]any{"address": addr, "attempts": attempt})
			}
			c.logger.Warn("connect failed, retrying",
				"address", addr,
				"attempt", attempt,
				"retryIn", c.retryDelay,
				"error", err)
			continue
		}

		c.conn = conn
		c.codec = protocol.NewCodec(conn,
			protocol.WithReadTimeout(c.readTimeout),
			protocol.WithWriteTimeout(c.writeTimeout))
		c.logger.Debug("connected", "address", addr, "attempts", attempt)
		return nil
	}
}

// Connected reports whether the client holds a usable connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Search returns every record whose name matches query. A reply that does
// not follow the protocol fails this request only; a transport failure
// closes the connection and the caller must Connect again.
func (c *Client) Search(ctx context.Context, query string) ([]food.Food, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}
	defer c.interruptOn(ctx)()

	if err := c.codec.SendSearch(query); err != nil {
		return nil, c.transportFailed(ctx, "search", err)
	}

	raw, err := c.codec.Receive()
	if err != nil {
		return nil, c.transportFailed(ctx, "search", err)
	}
	n, err := protocol.Parse(raw).Count()
	if err != nil {
		return nil, err
	}

	// n comes from the peer, so it only hints the initial capacity
	var protoErr error
	results := make([]food.Food, 0, min(n, maxPrealloc))
	for range n {
		raw, err := c.codec.Receive()
		if err != nil {
			return nil, c.transportFailed(ctx, "search", err)
		}
		record, err := protocol.Parse(raw).Food()
		if err != nil {
			// keep reading so the stream stays aligned with the server
			protoErr = errors.Join(protoErr, err)
			continue
		}
		results = append(results, record)
	}
	return results, protoErr
}

// Add validates record and sends it to the server. The server does not
// acknowledge the record beyond the frame-level ACK.
func (c *Client) Add(ctx context.Context, record food.Food) error {
	if err := record.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	defer c.interruptOn(ctx)()

	if err := c.codec.SendFood(record); err != nil {
		return c.transportFailed(ctx, "add", err)
	}
	return nil
}

// Close closes the connection. It is safe to call on an unconnected client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.codec = nil
	return err
}

// interruptOn aborts blocked I/O when ctx ends. The returned func must be
// called once the request is over.
func (c *Client) interruptOn(ctx context.Context) func() {
	conn := c.conn
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	return func() {
		stop()
	}
}

func (c *Client) transportFailed(ctx context.Context, op string, err error) error {
	_ = c.closeLocked()
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = errors.Join(ctxErr, err)
	}
	return cerrors.WrapWithContext(cerrors.ErrCodeTransport, op+" failed",
		err, map[string]any{"address": c.Address()})
}
