package runner

import (
	"fmt"
	"sync"

	"github.com/notargets/kernelbench/logging"
	"github.com/notargets/kernelbench/runner/builder"
	"github.com/sirupsen/logrus"
)

// Backend executes kernels and owns device storage. All methods except
// Allocate and Validate are called from the queue worker only.
type Backend interface {
	// Mode names the device, e.g. "Host", "Serial", "OpenMP", "CUDA"
	Mode() string
	// Validate reports whether the backend can run the kernel
	Validate(def *KernelDefinition) error
	// Allocate creates device storage sized for the buffer
	Allocate(buf *Buffer) (DeviceMemory, error)
	// Upload copies the host array into device storage
	Upload(buf *Buffer) error
	// Download copies device storage into the host array
	Download(buf *Buffer) error
	// Launch runs one kernel to completion over the index space
	Launch(def *KernelDefinition, rng builder.Range, args []Arg, scalars []interface{}) error
	// Free releases every backend resource
	Free()
}

// DefaultQueueDepth bounds the number of queued but not yet started submissions
const DefaultQueueDepth = 1024

// Queue is an in-order execution queue. Submissions return immediately and
// run one after another on a single worker goroutine.
type Queue struct {
	backend Backend
	tasks   chan func()
	exited  chan struct{}
	log     *logrus.Entry

	mu      sync.Mutex
	closed  bool
	nextID  uint64
	buffers []*Buffer // bound and not yet released
	events  []*Event  // submitted and not yet pruned, in submission order
	failed  error     // first error among pruned events
}

// NewQueue creates a queue over backend and starts its worker
func NewQueue(backend Backend) *Queue {
	return NewQueueWithDepth(backend, DefaultQueueDepth)
}

// NewQueueWithDepth creates a queue with an explicit submission buffer depth
func NewQueueWithDepth(backend Backend, depth int) *Queue {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	q := &Queue{
		backend: backend,
		tasks:   make(chan func(), depth),
		exited:  make(chan struct{}),
		log:     logging.Get().WithField("device", backend.Mode()),
	}
	go q.worker()
	q.log.Debug("queue started")
	return q
}

// Mode returns the backend device mode
func (q *Queue) Mode() string {
	return q.backend.Mode()
}

// Backend returns the backend the queue dispatches to
func (q *Queue) Backend() Backend {
	return q.backend
}

func (q *Queue) worker() {
	defer close(q.exited)
	for task := range q.tasks {
		task()
	}
}

// enqueue hands a task to the worker. Callers hold q.mu and have checked q.closed.
func (q *Queue) enqueue(task func()) {
	q.tasks <- task
}

// Finish blocks until every submission made so far has completed and
// returns the first kernel error seen on the queue
func (q *Queue) Finish() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	events := make([]*Event, len(q.events))
	copy(events, q.events)
	q.mu.Unlock()

	// errors are collected by pruneEvents
	WaitAll(events)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneEvents()
	return q.failed
}

// pruneEvents drops the completed prefix of q.events, keeping the first
// error. Events complete in submission order. Callers hold q.mu.
func (q *Queue) pruneEvents() {
	n := 0
	for n < len(q.events) && q.events[n].IsComplete() {
		if err := q.events[n].err; err != nil && q.failed == nil {
			q.failed = err
		}
		n++
	}
	if n == 0 {
		return
	}
	rest := copy(q.events, q.events[n:])
	clear(q.events[rest:])
	q.events = q.events[:rest]
}

// Close drains pending submissions, releases every buffer and frees the
// backend. Later operations fail with ErrQueueClosed.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	<-q.exited

	q.mu.Lock()
	buffers := q.buffers
	q.buffers = nil
	q.pruneEvents()
	err := q.failed
	q.events = nil
	q.mu.Unlock()

	for _, buf := range buffers {
		q.releaseBuffer(buf)
	}
	q.backend.Free()

	q.log.Debug("queue closed")
	if err != nil {
		return fmt.Errorf("queue drained with kernel failure: %w", err)
	}
	return nil
}

// forget removes a released buffer from the queue's bookkeeping. Callers hold q.mu.
func (q *Queue) forget(buf *Buffer) {
	for i, b := range q.buffers {
		if b == buf {
			last := len(q.buffers) - 1
			q.buffers[i] = q.buffers[last]
			q.buffers[last] = nil
			q.buffers = q.buffers[:last]
			return
		}
	}
}

// releaseBuffer frees device storage. Runs on the worker or after it exited.
func (q *Queue) releaseBuffer(buf *Buffer) {
	if buf.mem == nil {
		return
	}
	buf.mem.Free()
	buf.mem = nil
	buf.deviceValid = false
}
