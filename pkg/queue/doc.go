// Package queue provides the bounded hand-off queue between the connection
// acceptor and the worker pool.
//
// The queue is a ring buffer guarded by a mutex plus two counting
// semaphores: one counting free slots, one counting queued items. Producers
// wait on the first, consumers on the second, each for a bounded time so
// that callers can notice shutdown between attempts.
//
//	q, _ := queue.New[net.Conn](5)
//	if err := q.Enqueue(ctx, conn, 5*time.Second); errors.Is(err, queue.ErrTimeout) {
//	    conn.Close() // shed load
//	}
package queue
