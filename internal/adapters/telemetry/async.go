package telemetry

import (
	"context"
	"sync"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// QueueSize determines the size of the async event channel.
const QueueSize = 4096

var _ ports.Renderer = (*AsyncRenderer)(nil)

// AsyncRenderer delivers renderer events from many goroutines to a wrapped renderer on a
// single goroutine, preserving their order. Log chunks are dropped when the queue is full;
// every other event waits for room.
type AsyncRenderer struct {
	next ports.Renderer
	msgs chan any
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncRenderer wraps next and starts the delivery goroutine.
func NewAsyncRenderer(next ports.Renderer) *AsyncRenderer {
	r := &AsyncRenderer{
		next: next,
		msgs: make(chan any, QueueSize),
		done: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *AsyncRenderer) run() {
	defer close(r.done)
	for msg := range r.msgs {
		switch m := msg.(type) {
		case MsgInitTasks:
			r.next.OnPlanEmit(m.Tasks)
		case MsgTaskStart:
			r.next.OnTaskStart(m.SpanID, m.ParentID, m.Name, m.StartTime)
		case MsgTaskLog:
			r.next.OnTaskLog(m.SpanID, m.Data)
		case MsgTaskComplete:
			r.next.OnTaskComplete(m.SpanID, m.EndTime, m.Err, m.Cached)
		case MsgBuildComplete:
			r.next.OnBuildComplete(m.Report)
		}
	}
}

func (r *AsyncRenderer) send(msg any, drop bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}
	if drop {
		select {
		case r.msgs <- msg:
		default:
		}
		return
	}
	r.msgs <- msg
}

// Start starts the wrapped renderer.
func (r *AsyncRenderer) Start(ctx context.Context) error {
	return r.next.Start(ctx)
}

// Stop delivers every queued event, then stops the wrapped renderer.
// Events sent after Stop are discarded.
func (r *AsyncRenderer) Stop() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.msgs)
	}
	r.mu.Unlock()

	<-r.done
	return r.next.Stop()
}

// Wait waits for the wrapped renderer.
func (r *AsyncRenderer) Wait() error {
	return r.next.Wait()
}

// OnPlanEmit queues the plan.
func (r *AsyncRenderer) OnPlanEmit(tasks []string) {
	r.send(MsgInitTasks{Tasks: tasks}, false)
}

// OnTaskStart queues a task start.
func (r *AsyncRenderer) OnTaskStart(spanID, parentID, name string, startTime time.Time) {
	r.send(MsgTaskStart{SpanID: spanID, ParentID: parentID, Name: name, StartTime: startTime}, false)
}

// OnTaskLog queues a log chunk, dropping it if the queue is full.
func (r *AsyncRenderer) OnTaskLog(spanID string, data []byte) {
	r.send(MsgTaskLog{SpanID: spanID, Data: data}, true)
}

// OnTaskComplete queues a task completion.
func (r *AsyncRenderer) OnTaskComplete(spanID string, endTime time.Time, err error, cached bool) {
	r.send(MsgTaskComplete{SpanID: spanID, EndTime: endTime, Err: err, Cached: cached}, false)
}

// OnBuildComplete queues a build report.
func (r *AsyncRenderer) OnBuildComplete(report *domain.BuildReport) {
	r.send(MsgBuildComplete{Report: report}, false)
}
