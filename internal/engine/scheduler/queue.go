package scheduler

import (
	"context"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
)

// Queue serializes re-runs per destination while different destinations run concurrently.
// A task submitted while its destination is running is coalesced into a single follow-up run.
type Queue struct {
	run func(ctx context.Context, task domain.BuildTask)

	mu    sync.Mutex
	slots map[domain.InternedString]*slot
	wg    sync.WaitGroup
}

type slot struct {
	pending bool
	next    domain.BuildTask
}

// NewQueue creates a Queue that executes tasks with run.
func NewQueue(run func(ctx context.Context, task domain.BuildTask)) *Queue {
	return &Queue{
		run:   run,
		slots: make(map[domain.InternedString]*slot),
	}
}

// Submit schedules task. It never blocks.
func (q *Queue) Submit(ctx context.Context, task domain.BuildTask) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if s, ok := q.slots[task.Destination]; ok {
		// The latest task wins: a re-plan may have changed its satellites.
		s.pending = true
		s.next = task
		return
	}

	q.slots[task.Destination] = &slot{}
	q.wg.Add(1)
	go q.loop(ctx, task)
}

// Running reports whether a run for dest is in flight.
func (q *Queue) Running(dest domain.InternedString) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.slots[dest]
	return ok
}

// Wait blocks until every in-flight run and its follow-up have finished.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) loop(ctx context.Context, task domain.BuildTask) {
	defer q.wg.Done()

	for {
		q.run(ctx, task)

		q.mu.Lock()
		s := q.slots[task.Destination]
		if !s.pending || ctx.Err() != nil {
			delete(q.slots, task.Destination)
			q.mu.Unlock()
			return
		}
		task = s.next
		s.pending = false
		s.next = domain.BuildTask{}
		q.mu.Unlock()
	}
}
