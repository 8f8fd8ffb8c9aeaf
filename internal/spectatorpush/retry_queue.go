package spectatorpush

import "time"

// retryQueue feeds delayed jobs back into the dispatch channel. A retry that
// finds the channel full is dropped like a fresh event would be.
type retryQueue struct {
	out  chan<- pushJob
	done <-chan struct{}
}

func newRetryQueue(out chan<- pushJob, done <-chan struct{}) *retryQueue {
	return &retryQueue{out: out, done: done}
}

func (q *retryQueue) Enqueue(job pushJob, delay time.Duration) {
	time.AfterFunc(max(delay, 0), func() {
		select {
		case <-q.done:
			return
		default:
		}
		select {
		case q.out <- job:
			metricPushQueueLen.Set(int64(len(q.out)))
		default:
			metricPushRetryDroppedTotal.Add(1)
		}
	})
}
