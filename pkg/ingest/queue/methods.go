package queue

import "sync/atomic"

// CloseAndDrain closes the queue channel and releases resources for any
// items still buffered, so a shutdown never leaves pooled buffers held by
// ops that will never be handled.
func (q *Queue) CloseAndDrain() {
	q.closeOnce.Do(func() {
		atomic.StoreInt32(&q.closed, 1)
		q.enqWg.Wait()
		close(q.ch)
	})
	for it := range q.ch {
		it.Done()
	}
}

// Len returns the current number of items in the queue.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the configured capacity of the queue.
func (q *Queue) Cap() int { return q.capacity }

// Dropped returns the number of operations that were dropped due to a full
// queue.
func (q *Queue) Dropped() uint64 { return atomic.LoadUint64(&q.dropped) }

// EnqueuedTotal returns total attempted enqueues across all queues.
func (q *Queue) EnqueuedTotal() uint64 { return atomic.LoadUint64(&enqueueTotal) }

// FailedTotal returns total enqueue failures across all queues.
func (q *Queue) FailedTotal() uint64 { return atomic.LoadUint64(&enqueueFailTotal) }
