// Package bench implements the benchmark cases. Each case follows the
// lifecycle Constructed -> SetUp -> Ran -> Verified, driven once by an
// external harness.
package bench

import (
	"errors"
	"fmt"

	"github.com/notargets/kernelbench/runner"
	"github.com/notargets/kernelbench/verify"
)

var (
	// ErrInvalidSize is returned when a case is constructed with N <= 0
	ErrInvalidSize = errors.New("problem size must be positive")
	// ErrInvalidState is returned when lifecycle operations are called out of order
	ErrInvalidState = errors.New("invalid benchmark state")
)

// Case is the contract every benchmark satisfies
type Case interface {
	// Name is the static identity used for reporting
	Name() string
	// Setup allocates host arrays, initializes inputs and binds device buffers
	Setup() error
	// Run submits the kernel(s) and appends their events to events without waiting
	Run(events *[]*runner.Event) error
	// Verify recomputes the reference and compares it with the device output.
	// A numeric mismatch returns false with a nil error.
	Verify(settings verify.Settings) (bool, error)
	// Close releases device buffers
	Close()
}

// Factory constructs a case for a problem size on a queue
type Factory func(q *runner.Queue, size int) (Case, error)

// Dispatch submits sub and appends the resulting event to events
func Dispatch(q *runner.Queue, events *[]*runner.Event, sub runner.Submission) error {
	if events == nil {
		return fmt.Errorf("dispatch %s: event sink is nil", sub.Kernel.Name)
	}
	ev, err := q.Submit(sub)
	if err != nil {
		return err
	}
	*events = append(*events, ev)
	return nil
}

func checkSize(name string, size int) error {
	if size <= 0 {
		return fmt.Errorf("%s: %w, got %d", name, ErrInvalidSize, size)
	}
	return nil
}
