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

package defaults

import "time"

// Listener and connection timeouts for the catalog server.
const (
	// AcceptPollTimeout bounds how long the acceptor blocks waiting for a
	// new connection before re-checking for shutdown.
	AcceptPollTimeout = 5 * time.Second

	// QueueWaitTimeout bounds how long the acceptor waits for a free queue
	// slot and how long a worker waits for a queued connection.
	QueueWaitTimeout = 5 * time.Second

	// ConnReadTimeout is the per-read deadline applied to client connections
	// so a worker blocked on a silent client still observes shutdown.
	ConnReadTimeout = 5 * time.Second

	// BindRetryDelay is the pause before retrying a failed listen.
	BindRetryDelay = 5 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// Pool sizing for the catalog server.
const (
	// WorkerCount is the number of long-lived connection workers.
	WorkerCount = 10

	// QueueCapacity is the number of accepted connections that may wait
	// for a worker.
	QueueCapacity = 5

	// ServerPort is the default catalog listen port.
	ServerPort = 12345
)

// Client timeouts for the catalog client.
const (
	// ClientConnectTimeout is the timeout for a single dial attempt.
	ClientConnectTimeout = 5 * time.Second

	// ClientRetryDelay is the pause between failed connection attempts.
	ClientRetryDelay = 5 * time.Second

	// ClientReadTimeout is the per-read deadline while waiting for replies.
	ClientReadTimeout = 10 * time.Second
)

// Metrics endpoint timeouts.
const (
	// MetricsReadHeaderTimeout prevents slow header attacks.
	MetricsReadHeaderTimeout = 5 * time.Second

	// MetricsReadTimeout is the maximum duration for reading a request.
	MetricsReadTimeout = 10 * time.Second

	// MetricsWriteTimeout is the maximum duration for writing a response.
	MetricsWriteTimeout = 30 * time.Second

	// MetricsIdleTimeout is the maximum duration to wait for the next request.
	MetricsIdleTimeout = 120 * time.Second
)
