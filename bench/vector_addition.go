package bench

import (
	"fmt"

	"github.com/notargets/kernelbench/reference"
	"github.com/notargets/kernelbench/runner"
	"github.com/notargets/kernelbench/runner/builder"
	"github.com/notargets/kernelbench/verify"
)

// VectorAdditionName is the reporting name of the vector addition case
const VectorAdditionName = "Runtime_VectorAddition"

// VectorAddition adds two constant vectors, 5 + 4, on the device
type VectorAddition struct {
	Lifecycle
	queue *runner.Queue
	size  int

	a, b, c          []float32
	bufA, bufB, bufC *runner.Buffer
}

// NewVectorAddition creates the case. size must be positive.
func NewVectorAddition(q *runner.Queue, size int) (*VectorAddition, error) {
	if err := checkSize(VectorAdditionName, size); err != nil {
		return nil, err
	}
	return &VectorAddition{
		Lifecycle: Lifecycle{name: VectorAdditionName},
		queue:     q,
		size:      size,
	}, nil
}

// VectorAdditionFactory adapts NewVectorAddition to Factory
func VectorAdditionFactory(q *runner.Queue, size int) (Case, error) {
	return NewVectorAddition(q, size)
}

func (va *VectorAddition) Name() string { return VectorAdditionName }

func (va *VectorAddition) Setup() error {
	if err := va.begin("setup", Constructed); err != nil {
		return err
	}
	return va.finish(SetUp, va.setup())
}

func (va *VectorAddition) setup() error {
	va.a = make([]float32, va.size)
	va.b = make([]float32, va.size)
	va.c = make([]float32, va.size)
	reference.Fill(va.a, reference.VectorA)
	reference.Fill(va.b, reference.VectorB)

	shape := builder.Range1D(va.size)
	var err error
	if va.bufA, err = va.queue.Bind("a", va.a, shape); err != nil {
		return fmt.Errorf("%s setup: %w", VectorAdditionName, err)
	}
	if va.bufB, err = va.queue.Bind("b", va.b, shape); err != nil {
		return fmt.Errorf("%s setup: %w", VectorAdditionName, err)
	}
	if va.bufC, err = va.queue.Bind("c", va.c, shape); err != nil {
		return fmt.Errorf("%s setup: %w", VectorAdditionName, err)
	}
	return nil
}

func (va *VectorAddition) Run(events *[]*runner.Event) error {
	if err := va.begin("run", SetUp); err != nil {
		return err
	}
	err := Dispatch(va.queue, events, runner.Submission{
		Kernel: VectorAdditionKernel,
		Range:  builder.Range1D(va.size),
		Args: []runner.Arg{
			runner.Access(va.bufA, builder.Read),
			runner.Access(va.bufB, builder.Read),
			runner.Access(va.bufC, builder.DiscardWrite),
		},
		Scalars: []interface{}{va.size},
	})
	return va.finish(Ran, err)
}

// Verify expects every output element to be exactly 9; constant inputs
// accumulate no rounding, so no tolerance applies
func (va *VectorAddition) Verify(settings verify.Settings) (bool, error) {
	if err := va.begin("verify", Ran); err != nil {
		return false, err
	}

	view, err := va.bufC.HostRead()
	if err != nil {
		return false, va.finish(Failed, fmt.Errorf("%s verify: %w", VectorAdditionName, err))
	}

	res := verify.CompareExact(view, reference.VectorExpected)
	settings.Notify(VectorAdditionName, res.First)
	return res.Passed, va.finish(Verified, nil)
}

func (va *VectorAddition) Close() {
	for _, buf := range []*runner.Buffer{va.bufA, va.bufB, va.bufC} {
		if buf != nil {
			buf.Release()
		}
	}
}
