// File: runner/kernel_execution.go

package runner

import (
	"fmt"

	"github.com/notargets/kernelbench/runner/builder"
	"github.com/sirupsen/logrus"
)

// Submission describes one kernel dispatch over an index space
type Submission struct {
	Kernel  *KernelDefinition
	Range   builder.Range
	Args    []Arg         // one per array parameter, in declaration order
	Scalars []interface{} // one per scalar parameter, in declaration order
}

// Submit validates the submission and hands it to the worker. It returns as
// soon as the submission is queued; the returned event completes when the
// kernel has run. Validation failures are configuration errors and nothing
// is queued.
func (q *Queue) Submit(sub Submission) (*Event, error) {
	if err := q.validateSubmission(&sub); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, fmt.Errorf("submit %s: %w", sub.Kernel.Name, ErrQueueClosed)
	}
	for _, arg := range sub.Args {
		if arg.Buffer.released {
			return nil, fmt.Errorf("submit %s: buffer %s has been released",
				sub.Kernel.Name, arg.Buffer.Name)
		}
	}

	q.pruneEvents()
	q.nextID++
	ev := newEvent(q.nextID, sub.Kernel.Name)
	q.events = append(q.events, ev)
	q.enqueue(func() { q.execute(sub, ev) })

	q.log.WithFields(logrus.Fields{
		"kernel": sub.Kernel.Name,
		"event":  ev.id,
		"range":  sub.Range.String(),
	}).Debug("kernel submitted")

	return ev, nil
}

// validateSubmission checks the index space against the kernel declaration
// and every bound buffer shape
func (q *Queue) validateSubmission(sub *Submission) error {
	def := sub.Kernel
	if err := def.Validate(); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := q.backend.Validate(def); err != nil {
		return fmt.Errorf("submit %s: %w", def.Name, err)
	}
	if err := sub.Range.Validate(); err != nil {
		return fmt.Errorf("submit %s: %w: %v", def.Name, ErrInvalidShape, err)
	}
	if sub.Range.Rank() != def.Rank {
		return fmt.Errorf("submit %s: %w: kernel is rank %d, index space is %v",
			def.Name, ErrShapeMismatch, def.Rank, sub.Range)
	}

	arrays := def.ArrayParams()
	if len(sub.Args) != len(arrays) {
		return fmt.Errorf("submit %s: expected %d buffer arguments, got %d",
			def.Name, len(arrays), len(sub.Args))
	}
	for i, arg := range sub.Args {
		param := arrays[i]
		if arg.Buffer == nil {
			return fmt.Errorf("submit %s: buffer for %s is nil", def.Name, param.Name)
		}
		if arg.Buffer.queue != q {
			return fmt.Errorf("submit %s: buffer %s is bound to a different queue",
				def.Name, arg.Buffer.Name)
		}
		if arg.Mode != param.Mode {
			return fmt.Errorf("submit %s: %w: %s declared %v, accessed as %v",
				def.Name, ErrAccessMode, param.Name, param.Mode, arg.Mode)
		}
		if !arg.Buffer.shape.Equal(sub.Range) {
			return fmt.Errorf("submit %s: %w: buffer %s is %v, index space is %v",
				def.Name, ErrShapeMismatch, arg.Buffer.Name, arg.Buffer.shape, sub.Range)
		}
	}

	scalars := def.ScalarParams()
	if len(sub.Scalars) != len(scalars) {
		return fmt.Errorf("submit %s: expected %d scalar arguments, got %d",
			def.Name, len(scalars), len(sub.Scalars))
	}

	return nil
}

// execute runs on the worker: pre-kernel transfers, launch, state update
func (q *Queue) execute(sub Submission, ev *Event) {
	ev.start()
	err := q.runKernel(sub)
	if err != nil {
		for _, arg := range sub.Args {
			if arg.Mode.Writes() {
				arg.Buffer.err = err
			}
		}
	}
	ev.complete(err)

	entry := q.log.WithFields(logrus.Fields{
		"kernel":  sub.Kernel.Name,
		"event":   ev.id,
		"elapsed": ev.Elapsed(),
	})
	if err != nil {
		entry.WithError(err).Warn("kernel failed")
		return
	}
	entry.Debug("kernel completed")
}

func (q *Queue) runKernel(sub Submission) error {
	// Perform pre-kernel memory operations
	if err := q.prepareArgs(sub.Args); err != nil {
		return fmt.Errorf("pre-kernel copy failed: %w", err)
	}

	// Execute kernel
	if err := q.backend.Launch(sub.Kernel, sub.Range, sub.Args, sub.Scalars); err != nil {
		return fmt.Errorf("kernel %s execution failed: %w", sub.Kernel.Name, err)
	}

	q.commitArgs(sub.Args)
	return nil
}
