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

// Package server implements the catalog server: a TCP acceptor feeding a
// bounded connection queue that a fixed pool of workers drains.
//
// # Architecture
//
// The acceptor binds the listener (retrying every BindRetryDelay until it
// succeeds) and polls Accept with a bounded deadline so it notices
// shutdown. Each accepted connection gets a UUID and is offered to the
// queue; when no slot frees up within QueueTimeout the connection is
// closed and counted as dropped.
//
// Workers dequeue one connection at a time and serve frames until the peer
// hangs up:
//
//   - SEARCH:query is answered with COUNT:n followed by n FOOD frames
//   - FOOD:record appends the record, no reply is sent
//   - anything else is logged as a protocol error and serving continues
//
// # Usage
//
//	cat := catalog.New(catalog.NewFileStore("calories.csv", slog.Default()), slog.Default())
//	if err := cat.Load(); err != nil {
//	    return err
//	}
//
//	srv, err := server.New(cat, server.WithConfig(cfg), server.WithVersion(version))
//	if err != nil {
//	    return err
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	if err := srv.Run(ctx); err != nil {
//	    return err
//	}
//	return cat.Persist()
//
// # Configuration
//
// NewConfig returns defaults overridden by the PORT, CATALOG_FILE,
// METRICS_PORT and SHUTDOWN_TIMEOUT_SECONDS environment variables.
// LoadConfigFile overlays a YAML document (TOML when the file ends in
// .toml) on those defaults:
//
//	port: 12345
//	catalogFile: /var/lib/catalog/calories.csv
//	workers: 10
//	queueCapacity: 5
//	queueTimeout: 5s
//	metricsPort: 9090
//
// # Observability
//
// When MetricsPort is set, an HTTP endpoint serves:
//
//	GET /metrics - Prometheus metrics
//	GET /health  - liveness
//	GET /ready   - 200 once the catalog listener is bound
//
// The server also reports READY and STOPPING to systemd when started by a
// Type=notify unit.
package server
