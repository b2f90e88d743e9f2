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

// Package defaults provides centralized configuration constants for the
// catalog server and client.
//
// This package defines timeout values, retry delays and pool sizes used
// across the codebase. Centralizing these values ensures consistency and
// makes tuning easier.
//
// # Timeout Categories
//
//   - Server timeouts: accept polling, queue waits, per-read deadlines
//   - Pool sizing: worker count and connection queue capacity
//   - Client timeouts: dial, reconnect delay, reply reads
//   - Metrics endpoint timeouts: the optional HTTP listener
//
// # Usage
//
//	import "github.com/calory-counter/catalog/pkg/defaults"
//
//	conn.SetReadDeadline(time.Now().Add(defaults.ConnReadTimeout))
//
// # Shutdown Latency
//
// Shutdown is cooperative: the acceptor and every worker observe it at
// their next bounded wait, so the shutdown latency is bounded by the
// largest of AcceptPollTimeout, QueueWaitTimeout and ConnReadTimeout plus
// the time to finish the frame in flight.
package defaults
