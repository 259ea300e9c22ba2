// Package queue implements a generic concurrency-bounded task scheduler.
//
// A Queue admits zero-argument tasks, runs at most Concurrency of them at a
// time, and preserves FIFO admission order among tasks of equal priority. It
// knows nothing about what the tasks do; callers observe outcomes through the
// per-task Handle or through registered listeners.
package queue

import (
	"errors"
	"fmt"
	"sync"
)

// ErrCleared rejects tasks that were removed from pending by Clear before
// they could run.
var ErrCleared = errors.New("task cleared before execution")

// Func is the unit of work executed by the Queue.
type Func[T any] func() (T, error)

// Handle tracks the outcome of one admitted task. The zero value is not
// usable; handles are produced by Queue.Add.
type Handle[T any] struct {
	id       uint64
	priority bool

	fn   Func[T]
	done chan struct{}

	value T
	err   error
}

// Done is closed once the task has completed, failed, or been cleared.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task settles and returns its outcome.
func (h *Handle[T]) Wait() (T, error) {
	<-h.done
	return h.value, h.err
}

// Priority reports whether the task was admitted with priority.
func (h *Handle[T]) Priority() bool {
	return h.priority
}

type successListener[T any] struct {
	id uint64
	fn func(value T, task *Handle[T])
}

type errorListener[T any] struct {
	id uint64
	fn func(err error, task *Handle[T])
}

type settledListener[T any] struct {
	id uint64
	fn func(value T, err error)
}

// Queue is a concurrency-bounded scheduler. All methods are safe for
// concurrent use.
type Queue[T any] struct {
	mu          sync.Mutex
	pending     []*Handle[T]
	active      map[*Handle[T]]struct{}
	concurrency int
	running     bool

	nextTaskID     uint64
	nextListenerID uint64

	onSuccess []successListener[T]
	onError   []errorListener[T]
	onSettled []settledListener[T]

	settleWaiters []chan struct{}
}

// New constructs a stopped Queue with the given concurrency bound.
// Values below one are clamped to one.
func New[T any](concurrency int) *Queue[T] {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Queue[T]{
		active:      make(map[*Handle[T]]struct{}),
		concurrency: concurrency,
	}
}

// Add admits a task and returns its Handle. Priority tasks are placed at the
// front of pending; everything else appends in FIFO order. If the Queue is
// running and a slot is free the task may begin immediately.
func (q *Queue[T]) Add(fn Func[T], priority bool) *Handle[T] {
	q.mu.Lock()
	q.nextTaskID++
	h := &Handle[T]{
		id:       q.nextTaskID,
		priority: priority,
		fn:       fn,
		done:     make(chan struct{}),
	}
	if priority {
		q.pending = append([]*Handle[T]{h}, q.pending...)
	} else {
		q.pending = append(q.pending, h)
	}
	q.dispatchLocked()
	q.mu.Unlock()
	return h
}

// Start marks the Queue running, begins pulling pending tasks into the active
// set, and returns a channel that is closed once the Queue settles (no active
// and no pending tasks). Calling Start on a running Queue is idempotent and
// still returns a settle channel.
func (q *Queue[T]) Start() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.running = true
	ch := make(chan struct{})
	if q.settledLocked() {
		close(ch)
		return ch
	}
	q.settleWaiters = append(q.settleWaiters, ch)
	q.dispatchLocked()
	return ch
}

// Stop halts admission of new tasks from pending. Tasks already active run to
// completion; there is no cancellation primitive for in-flight work.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	q.running = false
	q.mu.Unlock()
}

// Throttle changes the concurrency bound for future admissions. Shrinking the
// bound never preempts tasks that are already active.
func (q *Queue[T]) Throttle(n int) {
	if n < 1 {
		n = 1
	}
	q.mu.Lock()
	q.concurrency = n
	q.dispatchLocked()
	q.mu.Unlock()
}

// Clear empties pending without touching active tasks. Cleared tasks settle
// with ErrCleared; their listeners are not invoked because the tasks never
// executed.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	cleared := q.pending
	q.pending = nil
	for _, h := range cleared {
		h.err = ErrCleared
		close(h.done)
	}
	waiters := q.takeSettleWaitersLocked()
	q.mu.Unlock()
	closeAll(waiters)
}

// Active returns a snapshot of the currently executing tasks.
func (q *Queue[T]) Active() []*Handle[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Handle[T], 0, len(q.active))
	for h := range q.active {
		out = append(out, h)
	}
	return out
}

// Pending returns a snapshot of the tasks awaiting a free slot, in admission
// order.
func (q *Queue[T]) Pending() []*Handle[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Handle[T](nil), q.pending...)
}

// All returns active tasks followed by pending tasks.
func (q *Queue[T]) All() []*Handle[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Handle[T], 0, len(q.active)+len(q.pending))
	for h := range q.active {
		out = append(out, h)
	}
	return append(out, q.pending...)
}

// IsRunning reports whether the Queue may pull pending tasks into active.
func (q *Queue[T]) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// IsSettled reports whether both active and pending are empty, regardless of
// the running flag.
func (q *Queue[T]) IsSettled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.settledLocked()
}

// OnSuccess registers a listener fired once per successfully completed task.
// The returned function unsubscribes the listener; after it returns the
// listener never fires again, including for tasks already in flight.
func (q *Queue[T]) OnSuccess(fn func(value T, task *Handle[T])) func() {
	q.mu.Lock()
	q.nextListenerID++
	id := q.nextListenerID
	q.onSuccess = append(q.onSuccess, successListener[T]{id: id, fn: fn})
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		for i, l := range q.onSuccess {
			if l.id == id {
				q.onSuccess = append(q.onSuccess[:i], q.onSuccess[i+1:]...)
				break
			}
		}
		q.mu.Unlock()
	}
}

// OnError registers a listener fired once per failed task. The returned
// function unsubscribes it.
func (q *Queue[T]) OnError(fn func(err error, task *Handle[T])) func() {
	q.mu.Lock()
	q.nextListenerID++
	id := q.nextListenerID
	q.onError = append(q.onError, errorListener[T]{id: id, fn: fn})
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		for i, l := range q.onError {
			if l.id == id {
				q.onError = append(q.onError[:i], q.onError[i+1:]...)
				break
			}
		}
		q.mu.Unlock()
	}
}

// OnSettled registers a listener fired once per task that completes or fails.
// Exactly one of value and err is meaningful. The returned function
// unsubscribes it.
func (q *Queue[T]) OnSettled(fn func(value T, err error)) func() {
	q.mu.Lock()
	q.nextListenerID++
	id := q.nextListenerID
	q.onSettled = append(q.onSettled, settledListener[T]{id: id, fn: fn})
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		for i, l := range q.onSettled {
			if l.id == id {
				q.onSettled = append(q.onSettled[:i], q.onSettled[i+1:]...)
				break
			}
		}
		q.mu.Unlock()
	}
}

// dispatchLocked pulls pending tasks into active while a slot is free.
// Callers must hold q.mu.
func (q *Queue[T]) dispatchLocked() {
	for q.running && len(q.active) < q.concurrency && len(q.pending) > 0 {
		h := q.pending[0]
		q.pending = q.pending[1:]
		q.active[h] = struct{}{}
		go q.run(h)
	}
}

func (q *Queue[T]) run(h *Handle[T]) {
	value, err := call(h.fn)

	q.mu.Lock()
	delete(q.active, h)
	h.value = value
	h.err = err
	close(h.done)
	var successFns []func(T, *Handle[T])
	var errorFns []func(error, *Handle[T])
	var settledFns []func(T, error)
	// Snapshot listeners under the lock so an unsubscribe during dispatch
	// cannot corrupt iteration.
	if err == nil {
		for _, l := range q.onSuccess {
			successFns = append(successFns, l.fn)
		}
	} else {
		for _, l := range q.onError {
			errorFns = append(errorFns, l.fn)
		}
	}
	for _, l := range q.onSettled {
		settledFns = append(settledFns, l.fn)
	}
	var waiters []chan struct{}
	if q.settledLocked() {
		waiters = q.takeSettleWaitersLocked()
	}
	q.dispatchLocked()
	q.mu.Unlock()

	for _, fn := range successFns {
		fn(value, h)
	}
	for _, fn := range errorFns {
		fn(err, h)
	}
	for _, fn := range settledFns {
		fn(value, err)
	}
	closeAll(waiters)
}

// call runs the task, converting a panic into an error so a misbehaving task
// cannot crash the admission loop.
func call[T any](fn Func[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return fn()
}

func (q *Queue[T]) settledLocked() bool {
	return len(q.active) == 0 && len(q.pending) == 0
}

// takeSettleWaitersLocked detaches waiters only when the queue is settled.
func (q *Queue[T]) takeSettleWaitersLocked() []chan struct{} {
	if !q.settledLocked() {
		return nil
	}
	waiters := q.settleWaiters
	q.settleWaiters = nil
	return waiters
}

func closeAll(chans []chan struct{}) {
	for _, ch := range chans {
		close(ch)
	}
}
