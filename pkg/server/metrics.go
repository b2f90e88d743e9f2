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
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	connectionsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_connections_accepted_total",
			Help: "Total number of accepted catalog connections",
		},
	)

	connectionsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_connections_dropped_total",
			Help: "Total number of connections closed because the queue stayed full",
		},
	)

	bindFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_bind_failures_total",
			Help: "Total number of failed listener bind attempts",
		},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_queue_depth",
			Help: "Connections waiting for a worker",
		},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_active_workers",
			Help: "Workers currently serving a connection",
		},
	)

	// Protocol metrics
	framesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_frames_received_total",
			Help: "Total number of frames received by message kind",
		},
		[]string{"kind"},
	)

	protocolErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_protocol_errors_total",
			Help: "Total number of frames that could not be handled",
		},
		[]string{"kind"},
	)

	// Catalog metrics
	searchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_searches_total",
			Help: "Total number of searches served",
		},
	)

	appendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_appends_total",
			Help: "Total number of records added",
		},
	)

	searchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_search_duration_seconds",
			Help:    "Catalog search latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)

	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "Total number of HTTP requests to the metrics endpoint",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Panic recovery metrics
	panicRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_panic_recoveries_total",
			Help: "Total number of panics recovered in HTTP handlers",
		},
	)
)

// metricsMiddleware instruments HTTP requests with Prometheus metrics.
func (s *Server) metricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := newResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(wrapped.Status())).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	}
}
