package pj

import "sync"

// workItem is one pending directory visit: the directory path, the root it
// descended from, and its depth relative to that root (roots are depth 0).
type workItem struct {
	path  string
	root  string
	depth int
}

// workQueue is the shared scheduling state for a single scan: a list of
// pending directory visits plus a count of items that have been enqueued but
// not yet completed. Workers block in pop until either new work arrives or
// the outstanding count drains to zero, which is the termination signal.
//
// A workQueue is owned by exactly one scan invocation and is torn down with
// it; nothing here is process-global.
type workQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []workItem
	pending int
	closed  bool
}

func newWorkQueue() *workQueue {
	q := &workQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push enqueues items and accounts them as outstanding. Items pushed after
// close are dropped so cancelled scans drain instead of growing.
func (q *workQueue) push(items ...workItem) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, items...)
	q.pending += len(items)
	if len(items) == 1 {
		q.cond.Signal()
	} else {
		q.cond.Broadcast()
	}
}

// pop removes and returns one pending item, blocking while the list is empty
// but other items are still in flight (they may yet produce children). It
// returns false once the scan is over: no pending work remains, or the queue
// was closed by cancellation.
func (q *workQueue) pop() (workItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && q.pending > 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed || len(q.items) == 0 {
		return workItem{}, false
	}
	item := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	return item, true
}

// done marks one previously popped item as complete. The final completion
// wakes every blocked worker so they can observe termination.
func (q *workQueue) done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending--
	if q.pending == 0 {
		q.cond.Broadcast()
	}
}

// close aborts the scan: pending items are discarded and all blocked workers
// are released. Safe to call more than once.
func (q *workQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
	q.cond.Broadcast()
}
