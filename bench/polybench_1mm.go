package bench

import (
	"fmt"

	"github.com/notargets/kernelbench/reference"
	"github.com/notargets/kernelbench/runner"
	"github.com/notargets/kernelbench/runner/builder"
	"github.com/notargets/kernelbench/verify"
)

// MM1Name is the reporting name of the matrix multiply case
const MM1Name = "Polybench_1mm"

// Polybench1MM multiplies two N x N matrices, C += A*B, one work-item per
// output cell
type Polybench1MM struct {
	Lifecycle
	queue *runner.Queue
	size  int

	a, b, c          []float32
	bufA, bufB, bufC *runner.Buffer
}

// NewPolybench1MM creates the case. size must be positive.
func NewPolybench1MM(q *runner.Queue, size int) (*Polybench1MM, error) {
	if err := checkSize(MM1Name, size); err != nil {
		return nil, err
	}
	return &Polybench1MM{
		Lifecycle: Lifecycle{name: MM1Name},
		queue:     q,
		size:      size,
	}, nil
}

// Polybench1MMFactory adapts NewPolybench1MM to Factory
func Polybench1MMFactory(q *runner.Queue, size int) (Case, error) {
	return NewPolybench1MM(q, size)
}

func (mm *Polybench1MM) Name() string { return MM1Name }

func (mm *Polybench1MM) Setup() error {
	if err := mm.begin("setup", Constructed); err != nil {
		return err
	}
	return mm.finish(SetUp, mm.setup())
}

func (mm *Polybench1MM) setup() error {
	n := mm.size
	mm.a = make([]float32, n*n)
	mm.b = make([]float32, n*n)
	mm.c = make([]float32, n*n)

	if err := reference.InitArray(mm.a, mm.b, n); err != nil {
		return fmt.Errorf("%s setup: %w", MM1Name, err)
	}

	shape := builder.Range2D(n, n)
	var err error
	if mm.bufA, err = mm.queue.BindPrefetched("A", mm.a, shape); err != nil {
		return fmt.Errorf("%s setup: %w", MM1Name, err)
	}
	if mm.bufB, err = mm.queue.BindPrefetched("B", mm.b, shape); err != nil {
		return fmt.Errorf("%s setup: %w", MM1Name, err)
	}
	if mm.bufC, err = mm.queue.BindPrefetched("C", mm.c, shape); err != nil {
		return fmt.Errorf("%s setup: %w", MM1Name, err)
	}
	return nil
}

func (mm *Polybench1MM) Run(events *[]*runner.Event) error {
	if err := mm.begin("run", SetUp); err != nil {
		return err
	}
	err := Dispatch(mm.queue, events, mm.submission())
	return mm.finish(Ran, err)
}

func (mm *Polybench1MM) submission() runner.Submission {
	return runner.Submission{
		Kernel: MM1Kernel,
		Range:  mm.bufC.Shape(),
		Args: []runner.Arg{
			runner.Access(mm.bufA, builder.Read),
			runner.Access(mm.bufB, builder.Read),
			runner.Access(mm.bufC, builder.ReadWrite),
		},
		Scalars: []interface{}{mm.size},
	}
}

// Verify recomputes A and B from scratch into fresh arrays, runs the CPU
// reference and compares with the device result under settings.Threshold
func (mm *Polybench1MM) Verify(settings verify.Settings) (bool, error) {
	if err := mm.begin("verify", Ran); err != nil {
		return false, err
	}

	n := mm.size
	A, B, C := make([]float32, n*n), make([]float32, n*n), make([]float32, n*n)
	if err := reference.InitArray(A, B, n); err != nil {
		return false, mm.finish(Failed, err)
	}
	if err := reference.MM1CPU(A, B, C, n); err != nil {
		return false, mm.finish(Failed, err)
	}

	view, err := mm.bufC.HostRead()
	if err != nil {
		return false, mm.finish(Failed, fmt.Errorf("%s verify: %w", MM1Name, err))
	}

	res, err := verify.Compare(verify.Slice(C), view, settings.Threshold)
	if err != nil {
		return false, mm.finish(Failed, err)
	}
	settings.Notify(MM1Name, res.First)
	return res.Passed, mm.finish(Verified, nil)
}

func (mm *Polybench1MM) Close() {
	for _, buf := range []*runner.Buffer{mm.bufA, mm.bufB, mm.bufC} {
		if buf != nil {
			buf.Release()
		}
	}
}
