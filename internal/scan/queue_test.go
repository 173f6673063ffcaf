package pj

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

// Sixteen workers drain a thousand items; every item must be seen exactly
// once and the queue must terminate on its own.
func TestQueueDrainExactlyOnce(t *testing.T) {
	q := newWorkQueue()

	const total = 1000
	items := make([]workItem, total)
	for i := range items {
		items[i] = workItem{path: strconv.Itoa(i)}
	}
	q.push(items...)

	const workers = 16
	results := make(chan string, total)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				item, ok := q.pop()
				if !ok {
					return
				}
				results <- item.path
				q.done()
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]int, total)
	for path := range results {
		seen[path]++
	}
	if len(seen) != total {
		t.Errorf("Expected %d distinct items, got %d", total, len(seen))
	}
	for path, count := range seen {
		if count != 1 {
			t.Errorf("Item %s seen %d times", path, count)
		}
	}
}

// Workers that push children before completing their item must keep the
// other workers alive until the whole tree is expanded.
func TestQueueRequeueKeepsWorkersAlive(t *testing.T) {
	q := newWorkQueue()
	q.push(workItem{path: "root", depth: 0})

	var mu sync.Mutex
	var popped int

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				item, ok := q.pop()
				if !ok {
					return
				}
				mu.Lock()
				popped++
				mu.Unlock()
				if item.depth < 3 {
					q.push(
						workItem{path: item.path + "/l", depth: item.depth + 1},
						workItem{path: item.path + "/r", depth: item.depth + 1},
					)
				}
				q.done()
			}
		}()
	}
	wg.Wait()

	// A binary tree of depth 3: 1+2+4+8 items.
	if popped != 15 {
		t.Errorf("Expected 15 pops, got %d", popped)
	}
}

func TestQueuePopReturnsFalseWhenDrained(t *testing.T) {
	q := newWorkQueue()
	q.push(workItem{path: "only"})

	if _, ok := q.pop(); !ok {
		t.Fatal("Expected to pop the pushed item")
	}
	q.done()

	if _, ok := q.pop(); ok {
		t.Error("Expected pop to report termination on a drained queue")
	}
}

func TestQueueCloseUnblocksWaiters(t *testing.T) {
	q := newWorkQueue()
	q.push(workItem{path: "in-flight"})

	// Hold one item in flight so a second pop blocks instead of
	// terminating.
	if _, ok := q.pop(); !ok {
		t.Fatal("Expected to pop the pushed item")
	}

	unblocked := make(chan bool, 1)
	go func() {
		_, ok := q.pop()
		unblocked <- ok
	}()

	// The waiter must still be blocked: work is in flight.
	select {
	case <-unblocked:
		t.Fatal("pop returned while work was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	q.close()
	select {
	case ok := <-unblocked:
		if ok {
			t.Error("Expected pop to report termination after close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("close did not unblock the waiting pop")
	}
}

func TestQueuePushAfterCloseIsDropped(t *testing.T) {
	q := newWorkQueue()
	q.close()
	q.push(workItem{path: "late"})

	if _, ok := q.pop(); ok {
		t.Error("Expected a closed queue to stay empty")
	}
}
