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

package server

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/calory-counter/catalog/pkg/food"
	"github.com/calory-counter/catalog/pkg/queue"
)

// Catalog is the record collection the workers serve.
type Catalog interface {
	Search(query string) []food.Food
	Append(record food.Food)
}

// Option is a functional option for configuring Server instances.
type Option func(*Server)

// WithConfig replaces the server configuration.
func WithConfig(cfg *Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithLogger sets the logger used by the acceptor, the workers and the
// metrics endpoint.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithName sets the server name reported by the metrics endpoint.
func WithName(name string) Option {
	return func(s *Server) {
		s.config.Name = name
	}
}

// WithVersion sets the server version reported by the metrics endpoint.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.config.Version = version
	}
}

// Server accepts catalog connections and hands them to a fixed pool of
// workers through a bounded queue.
type Server struct {
	config  *Config
	logger  *slog.Logger
	catalog Catalog
	conns   *queue.Queue[*session]

	mu    sync.RWMutex
	ready bool
	addr  net.Addr
	bound chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
	bindOnce sync.Once
}

// New creates a new Server serving catalog. Options are applied in order,
// so WithName and WithVersion should follow WithConfig.
func New(catalog Catalog, opts ...Option) (*Server, error) {
	s := &Server{
		config:  parseConfig(),
		logger:  slog.Default(),
		catalog: catalog,
		bound:   make(chan struct{}),
		stop:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	conns, err := queue.New[*session](s.config.QueueCapacity)
	if err != nil {
		return nil, err
	}
	s.conns = conns

	return s, nil
}

// Run binds the listener and serves connections until ctx is canceled or
// Shutdown is called. Bind failures are retried, so Run only returns once
// the acceptor, every worker and the metrics endpoint have exited.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("starting server",
		"name", s.config.Name,
		"version", s.config.Version,
		"address", s.config.ListenAddress(),
		"workers", s.config.Workers,
		"queueCapacity", s.config.QueueCapacity,
		"acceptTimeout", s.config.AcceptTimeout,
		"queueTimeout", s.config.QueueTimeout,
		"readTimeout", s.config.ReadTimeout,
		"metricsPort", s.config.MetricsPort,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.accept(gctx)
	})

	for i := range s.config.Workers {
		g.Go(func() error {
			return s.work(gctx, i)
		})
	}

	g.Go(func() error {
		return s.serveMetrics(gctx)
	})

	err := g.Wait()

	s.setReady(false)
	s.drain()
	s.logger.Info("server stopped")

	return err
}

// Shutdown asks a running server to stop. It is safe to call more than
// once and from any goroutine.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Addr returns the bound listener address, or nil before the first
// successful bind.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Bound is closed once the listener has been bound.
func (s *Server) Bound() <-chan struct{} {
	return s.bound
}

// IsReady reports whether the server is accepting connections.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *Server) setReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *Server) setBound(addr net.Addr) {
	s.mu.Lock()
	s.addr = addr
	s.ready = true
	s.mu.Unlock()

	s.bindOnce.Do(func() {
		close(s.bound)
	})
}

// drain closes connections that were accepted but never picked up.
func (s *Server) drain() {
	for {
		sess, ok := s.conns.TryDequeue()
		if !ok {
			break
		}
		s.logger.Debug("closing queued connection", "connection", sess.id)
		sess.close()
	}
	queueDepth.Set(0)
}
