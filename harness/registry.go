package harness

import (
	"fmt"

	"github.com/notargets/kernelbench/bench"
)

// Benchmark names a case and how to build it
type Benchmark struct {
	Name    string
	Alias   string // CLI subcommand name
	Short   string
	Factory bench.Factory
}

var benchmarks = []Benchmark{
	{
		Name:    bench.VectorAdditionName,
		Alias:   "vector-add",
		Short:   "element-wise c = a + b over N floats",
		Factory: bench.VectorAdditionFactory,
	},
	{
		Name:    bench.MM1Name,
		Alias:   "mm1",
		Short:   "dense N x N matrix product C += A * B",
		Factory: bench.Polybench1MMFactory,
	},
}

// Benchmarks returns every registered benchmark in run order
func Benchmarks() []Benchmark {
	out := make([]Benchmark, len(benchmarks))
	copy(out, benchmarks)
	return out
}

// Lookup finds a benchmark by reporting name or alias
func Lookup(name string) (Benchmark, error) {
	for _, b := range benchmarks {
		if b.Name == name || b.Alias == name {
			return b, nil
		}
	}
	return Benchmark{}, fmt.Errorf("unknown benchmark %q", name)
}
