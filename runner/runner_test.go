package runner

import (
	"testing"

	"github.com/notargets/kernelbench/runner/builder"
	"github.com/stretchr/testify/require"
)

// Kernels shared by the queue tests. Host bodies cannot see scalars, so
// constants are baked in.

var fillKernel = DefineKernel("fill", 1, builder.Output("out")).
	WithHost(func(it Item, args []*Accessor) {
		args[0].Set(it.Get(0), 3)
	})

var incrementKernel = DefineKernel("increment", 1, builder.InOut("x")).
	WithHost(func(it Item, args []*Accessor) {
		i := it.Get(0)
		args[0].Set(i, args[0].At(i)+1)
	})

var copyKernel = DefineKernel("copy", 1, builder.Scalar("N"), builder.Input("src"), builder.Output("dst")).
	WithBody(`
for (int i = 0; i < N; ++i; @tile(64, @outer, @inner)) {
	dst[i] = src[i];
}`).
	WithHost(func(it Item, args []*Accessor) {
		i := it.Get(0)
		args[1].Set(i, args[0].At(i))
	})

// writes through its read-only input
var violatingKernel = DefineKernel("violate", 1, builder.Input("src"), builder.Output("dst")).
	WithHost(func(it Item, args []*Accessor) {
		args[0].Set(it.Get(0), 0)
	})

var transposeKernel = DefineKernel("transpose_square", 2, builder.Input("A"), builder.Output("B")).
	WithHost(func(it Item, args []*Accessor) {
		i, j := it.Get(0), it.Get(1)
		args[1].Set2(j, i, args[0].At2(i, j))
	})

// gateKernel blocks every work-item until gate is closed
func gateKernel(gate <-chan struct{}) *KernelDefinition {
	return DefineKernel("gated", 1, builder.Output("out")).
		WithHost(func(it Item, args []*Accessor) {
			<-gate
			args[0].Set(it.Get(0), 1)
		})
}

func newHostQueue(t *testing.T) (*Queue, *HostBackend) {
	t.Helper()
	hb := NewHostBackend(4)
	q := NewQueue(hb)
	t.Cleanup(func() { q.Close() })
	return q, hb
}

func mustBind(t *testing.T, q *Queue, name string, host []float32, shape builder.Range) *Buffer {
	t.Helper()
	buf, err := q.Bind(name, host, shape)
	require.NoError(t, err)
	return buf
}

func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}
