package library

import (
	"sync"
)

// DefaultWorkers caps how many part-materialization tasks run concurrently.
const DefaultWorkers = 50

// WorkQueue is a bounded-concurrency work queue with owner-based priority.
// Tasks run in submission order; Prioritize moves all of an owner's pending
// tasks to the front, which lets the player favor the audiobook the user just
// selected over background restore work.
type WorkQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []queueTask
	closed bool
	wg     sync.WaitGroup
}

type queueTask struct {
	owner any
	run   func()
}

// NewWorkQueue starts a queue with the given number of workers. Non-positive
// worker counts fall back to DefaultWorkers.
func NewWorkQueue(workers int) *WorkQueue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	q := &WorkQueue{}
	q.cond = sync.NewCond(&q.mu)
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker()
	}
	return q
}

func (q *WorkQueue) worker() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		task.run()
	}
}

// Submit enqueues a task tagged with its owner. Reports false when the queue
// has been closed.
func (q *WorkQueue) Submit(owner any, run func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, queueTask{owner: owner, run: run})
	q.cond.Signal()
	return true
}

// Prioritize moves every pending task of the given owner to the front of the
// queue, preserving their relative order. Running tasks are unaffected.
func (q *WorkQueue) Prioritize(owner any) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) < 2 {
		return
	}
	front := make([]queueTask, 0, len(q.tasks))
	rest := make([]queueTask, 0, len(q.tasks))
	for _, t := range q.tasks {
		if t.owner == owner {
			front = append(front, t)
		} else {
			rest = append(rest, t)
		}
	}
	q.tasks = append(front, rest...)
}

// Pending returns the number of queued, not yet running tasks.
func (q *WorkQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close drops pending tasks, stops the workers and waits for running tasks to
// finish.
func (q *WorkQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.tasks = nil
	q.cond.Broadcast()
	q.mu.Unlock()

	q.wg.Wait()
}
