package auth

import (
	"log/slog"
	"sync"
)

// Scheduler runs tasks later, never on the caller's stack.
type Scheduler interface {
	ScheduleDeferred(task func())
}

// EventLoop is a Scheduler that runs tasks one at a time, in submission order,
// on a single goroutine. It plays the role of a UI dispatch thread: callbacks
// delivered through it never run concurrently with each other.
type EventLoop struct {
	mu      sync.Mutex
	queue   []func()
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

// NewEventLoop starts an EventLoop. Call Close to stop it.
func NewEventLoop() *EventLoop {
	l := &EventLoop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

// ScheduleDeferred queues task. The queue is unbounded, so tasks may schedule further tasks.
// Tasks scheduled after Close are dropped.
func (l *EventLoop) ScheduleDeferred(task func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		slog.Warn("Event loop closed, dropping scheduled task")
		return
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	l.signal()
}

// Close runs the tasks already queued, then stops the loop.
// It must not be called from a task running on the loop, and neither may
// Controller.Token when the loop is that Controller's Scheduler.
func (l *EventLoop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.stopped
		return
	}
	l.closed = true
	l.mu.Unlock()
	l.signal()
	<-l.stopped
}

func (l *EventLoop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *EventLoop) run() {
	defer close(l.stopped)
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			closed := l.closed
			l.mu.Unlock()
			if closed {
				return
			}
			<-l.wake
			continue
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		runTask(task)
	}
}

func runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Scheduled task panicked", "panic", r)
		}
	}()
	task()
}
