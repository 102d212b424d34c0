package bench

import (
	"github.com/notargets/kernelbench/runner"
	"github.com/notargets/kernelbench/runner/builder"
)

// VectorAdditionKernel computes c[i] = a[i] + b[i] over [0, N)
var VectorAdditionKernel = runner.DefineKernel("vector_addition", 1,
	builder.Scalar("N"),
	builder.Input("a"),
	builder.Input("b"),
	builder.Output("c"),
).WithBody(`
for (int i = 0; i < N; ++i; @tile(256, @outer, @inner)) {
	c[i] = a[i] + b[i];
}`).WithHost(func(it runner.Item, args []*runner.Accessor) {
	a, b, c := args[0], args[1], args[2]
	i := it.Get(0)
	c.Set(i, a.At(i)+b.At(i))
})

// MM1Kernel accumulates C[i][j] += A[i][k] * B[k][j] with one work-item per
// output cell. C is read-write because accumulation starts from its
// existing contents.
var MM1Kernel = runner.DefineKernel("polybench_1mm", 2,
	builder.Scalar("N"),
	builder.Input("A"),
	builder.Input("B"),
	builder.InOut("C"),
).WithBody(`
for (int cell = 0; cell < N * N; ++cell; @tile(256, @outer, @inner)) {
	const int i = cell / N;
	const int j = cell % N;
	for (int k = 0; k < N; ++k) {
		C[i * N + j] += A[i * N + k] * B[k * N + j];
	}
}`).WithHost(func(it runner.Item, args []*runner.Accessor) {
	A, B, C := args[0], args[1], args[2]
	i, j := it.Get(0), it.Get(1)
	n := A.Shape().Cols()
	for k := 0; k < n; k++ {
		C.Add2(i, j, A.At2(i, k)*B.At2(k, j))
	}
})
