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
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calory-counter/catalog/pkg/defaults"
	"github.com/calory-counter/catalog/pkg/serializer"
)

// setupRoutes configures the metrics endpoint routes
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.withMiddleware(s.handleDefault))
	mux.HandleFunc("/health", s.withMiddleware(s.handleHealth))
	mux.HandleFunc("/ready", s.withMiddleware(s.handleReady))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// serveMetrics runs the HTTP metrics endpoint until ctx is canceled. A
// failure to bind is logged and does not stop the catalog server.
func (s *Server) serveMetrics(ctx context.Context) error {
	if s.config.MetricsPort == 0 {
		return nil
	}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(s.config.Address, strconv.Itoa(s.config.MetricsPort)),
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: defaults.MetricsReadHeaderTimeout,
		ReadTimeout:       defaults.MetricsReadTimeout,
		WriteTimeout:      defaults.MetricsWriteTimeout,
		IdleTimeout:       defaults.MetricsIdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("metrics endpoint shutdown failed", "error", err)
		}
	})
	defer stop()

	s.logger.Info("starting metrics endpoint", "address", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("metrics endpoint failed", "address", httpServer.Addr, "error", err)
	}
	return nil
}

// handleDefault describes the server and its routes
func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	resp := struct {
		Name      string   `json:"name"`
		Version   string   `json:"version"`
		Ready     bool     `json:"ready"`
		Listener  string   `json:"listener,omitempty"`
		Queued    int      `json:"queued"`
		Timestamp string   `json:"timestamp"`
		Routes    []string `json:"routes"`
	}{
		Name:      s.config.Name,
		Version:   s.config.Version,
		Ready:     s.IsReady(),
		Queued:    s.conns.Len(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Routes: []string{
			"GET /health",
			"GET /ready",
			"GET /metrics",
		},
	}
	if addr := s.Addr(); addr != nil {
		resp.Listener = addr.String()
	}

	serializer.RespondJSON(w, http.StatusOK, resp)
}
