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

package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	cerrors "github.com/calory-counter/catalog/pkg/errors"
)

// ErrTimeout is returned when no slot or item became available in time.
var ErrTimeout = cerrors.New(cerrors.ErrCodeTimeout, "queue wait timed out")

// Queue is a fixed-capacity FIFO ring buffer with blocking, time-bounded
// Enqueue and Dequeue. It is safe for concurrent use.
type Queue[T any] struct {
	empty *semaphore.Weighted // one available unit per free slot
	full  *semaphore.Weighted // one available unit per queued item

	mu    sync.Mutex
	items []T
	in    int
	out   int
	count int
}

// New returns a queue holding at most capacity items.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, cerrors.NewWithContext(cerrors.ErrCodeInvalidRequest, "queue capacity must be positive",
			map[string]any{"capacity": capacity})
	}

	c := int64(capacity)
	q := &Queue[T]{
		empty: semaphore.NewWeighted(c),
		full:  semaphore.NewWeighted(c),
		items: make([]T, capacity),
	}
	// Weighted starts with every unit free; claim them all so the full-slot
	// semaphore starts at zero and each Enqueue releases one.
	if !q.full.TryAcquire(c) {
		return nil, cerrors.New(cerrors.ErrCodeInternal, "failed to initialize queue")
	}
	return q, nil
}

// Enqueue appends item, waiting up to timeout for a free slot.
func (q *Queue[T]) Enqueue(ctx context.Context, item T, timeout time.Duration) error {
	if err := acquire(ctx, q.empty, timeout); err != nil {
		return err
	}

	q.mu.Lock()
	q.items[q.in] = item
	q.in = (q.in + 1) % len(q.items)
	q.count++
	q.mu.Unlock()

	q.full.Release(1)
	return nil
}

// Dequeue removes the oldest item, waiting up to timeout for one to arrive.
// It returns ErrTimeout when none did so the caller can re-check shutdown.
func (q *Queue[T]) Dequeue(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T
	if err := acquire(ctx, q.full, timeout); err != nil {
		return zero, err
	}
	return q.take(), nil
}

// TryDequeue removes the oldest item without waiting.
func (q *Queue[T]) TryDequeue() (T, bool) {
	var zero T
	if !q.full.TryAcquire(1) {
		return zero, false
	}
	return q.take(), true
}

func (q *Queue[T]) take() T {
	var zero T

	q.mu.Lock()
	item := q.items[q.out]
	q.items[q.out] = zero
	q.out = (q.out + 1) % len(q.items)
	q.count--
	q.mu.Unlock()

	q.empty.Release(1)
	return item
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return len(q.items)
}

func acquire(ctx context.Context, sem *semaphore.Weighted, timeout time.Duration) error {
	if sem.TryAcquire(1) {
		return nil
	}
	if timeout <= 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrTimeout
	}

	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sem.Acquire(wctx, 1); err != nil {
		// Distinguish our own deadline from the caller's cancellation.
		if perr := ctx.Err(); perr != nil {
			return perr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return err
	}
	return nil
}
