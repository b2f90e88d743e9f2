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

import (
	"testing"
	"time"
)

func TestTimeoutConstants(t *testing.T) {
	tests := []struct {
		name     string
		timeout  time.Duration
		minValue time.Duration
		maxValue time.Duration
	}{
		// Server timeouts
		{"AcceptPollTimeout", AcceptPollTimeout, 1 * time.Second, 30 * time.Second},
		{"QueueWaitTimeout", QueueWaitTimeout, 1 * time.Second, 30 * time.Second},
		{"ConnReadTimeout", ConnReadTimeout, 1 * time.Second, 30 * time.Second},
		{"BindRetryDelay", BindRetryDelay, 1 * time.Second, 60 * time.Second},
		{"ServerShutdownTimeout", ServerShutdownTimeout, 10 * time.Second, 60 * time.Second},

		// Client timeouts
		{"ClientConnectTimeout", ClientConnectTimeout, 1 * time.Second, 30 * time.Second},
		{"ClientRetryDelay", ClientRetryDelay, 1 * time.Second, 60 * time.Second},
		{"ClientReadTimeout", ClientReadTimeout, 1 * time.Second, 60 * time.Second},

		// Metrics endpoint timeouts
		{"MetricsReadHeaderTimeout", MetricsReadHeaderTimeout, 1 * time.Second, 30 * time.Second},
		{"MetricsWriteTimeout", MetricsWriteTimeout, 5 * time.Second, 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.timeout < tt.minValue {
				t.Errorf("%s (%v) is below minimum expected value (%v)", tt.name, tt.timeout, tt.minValue)
			}
			if tt.timeout > tt.maxValue {
				t.Errorf("%s (%v) is above maximum expected value (%v)", tt.name, tt.timeout, tt.maxValue)
			}
		})
	}
}

func TestShutdownCoversPollIntervals(t *testing.T) {
	// Every worker and the acceptor notice shutdown at their next bounded
	// wait, so the graceful shutdown budget must exceed the largest one.
	for _, d := range []time.Duration{AcceptPollTimeout, QueueWaitTimeout, ConnReadTimeout} {
		if d >= ServerShutdownTimeout {
			t.Errorf("poll interval %v should be less than ServerShutdownTimeout (%v)", d, ServerShutdownTimeout)
		}
	}
}

func TestPoolSizing(t *testing.T) {
	if WorkerCount <= 0 {
		t.Errorf("WorkerCount must be positive, got %d", WorkerCount)
	}
	if QueueCapacity <= 0 {
		t.Errorf("QueueCapacity must be positive, got %d", QueueCapacity)
	}
	if ServerPort <= 0 || ServerPort > 65535 {
		t.Errorf("ServerPort out of range: %d", ServerPort)
	}
}

func TestMetricsTimeoutRelationships(t *testing.T) {
	if MetricsReadTimeout > MetricsWriteTimeout {
		t.Errorf("MetricsReadTimeout (%v) should not exceed MetricsWriteTimeout (%v)",
			MetricsReadTimeout, MetricsWriteTimeout)
	}
	if MetricsIdleTimeout < MetricsWriteTimeout {
		t.Errorf("MetricsIdleTimeout (%v) should be at least MetricsWriteTimeout (%v)",
			MetricsIdleTimeout, MetricsWriteTimeout)
	}
}
