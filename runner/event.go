package runner

import (
	"time"
)

// Event tracks the asynchronous completion of one submitted kernel. Submit
// returns it immediately; nothing in this package blocks on it except Wait.
type Event struct {
	id     uint64
	kernel string
	done   chan struct{}

	// written by the worker before done is closed
	err       error
	submitted time.Time
	started   time.Time
	finished  time.Time
}

func newEvent(id uint64, kernel string) *Event {
	return &Event{
		id:        id,
		kernel:    kernel,
		done:      make(chan struct{}),
		submitted: time.Now(),
	}
}

func (e *Event) start() {
	e.started = time.Now()
}

func (e *Event) complete(err error) {
	e.err = err
	e.finished = time.Now()
	close(e.done)
}

// ID returns the queue-local sequence number of the submission
func (e *Event) ID() uint64 { return e.id }

// Kernel returns the name of the kernel the event belongs to
func (e *Event) Kernel() string { return e.kernel }

// Done returns a channel closed when the kernel has finished
func (e *Event) Done() <-chan struct{} { return e.done }

// IsComplete reports whether the kernel has finished, without blocking
func (e *Event) IsComplete() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the kernel has finished and returns its error
func (e *Event) Wait() error {
	<-e.done
	return e.err
}

// Err returns the kernel error, or nil if it succeeded or is still running
func (e *Event) Err() error {
	if !e.IsComplete() {
		return nil
	}
	return e.err
}

// Elapsed returns device execution time, zero until the event completes
func (e *Event) Elapsed() time.Duration {
	if !e.IsComplete() || e.started.IsZero() {
		return 0
	}
	return e.finished.Sub(e.started)
}

// Latency returns the time from submission to completion, zero until the event completes
func (e *Event) Latency() time.Duration {
	if !e.IsComplete() {
		return 0
	}
	return e.finished.Sub(e.submitted)
}

// WaitAll waits for every event and returns the first error encountered
func WaitAll(events []*Event) error {
	var first error
	for _, e := range events {
		if err := e.Wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
