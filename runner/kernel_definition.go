package runner

import (
	"fmt"

	"github.com/notargets/kernelbench/runner/builder"
)

// Item is one work-item coordinate within an index space
type Item struct {
	id  [2]int
	rng builder.Range
}

// Get returns the coordinate along dimension dim
func (it Item) Get(dim int) int {
	if dim < 0 || dim >= it.rng.Rank() {
		panic(fmt.Sprintf("dimension %d out of range for rank %d", dim, it.rng.Rank()))
	}
	return it.id[dim]
}

// Linear returns the row-major position of the item within its range
func (it Item) Linear() int {
	return it.rng.Offset(it.id[0], it.id[1])
}

// Range returns the index space the item belongs to
func (it Item) Range() builder.Range {
	return it.rng
}

func itemAt(rng builder.Range, linear int) Item {
	cols := rng.Cols()
	return Item{id: [2]int{linear / cols, linear % cols}, rng: rng}
}

// HostBody is the per work-item body executed by the host backend. Accessors
// arrive in the order the kernel declares its array parameters.
type HostBody func(it Item, args []*Accessor)

// KernelDefinition holds all information about a kernel. Name is the
// explicit identifier used to cache builds and tag events.
type KernelDefinition struct {
	Name   string
	Rank   int
	Params []builder.ParamSpec

	// OKL loop nest for the OCCA backend, wrapped by builder.GenerateKernel
	Body string

	// Go body for the host backend
	Host HostBody
}

// DefineKernel creates a kernel definition from parameter builders
func DefineKernel(name string, rank int, params ...*builder.ParamBuilder) *KernelDefinition {
	return &KernelDefinition{
		Name:   name,
		Rank:   rank,
		Params: builder.Specs(params...),
	}
}

// WithBody sets the OKL loop nest
func (kd *KernelDefinition) WithBody(okl string) *KernelDefinition {
	kd.Body = okl
	return kd
}

// WithHost sets the Go body
func (kd *KernelDefinition) WithHost(body HostBody) *KernelDefinition {
	kd.Host = body
	return kd
}

// Validate checks the definition independently of any backend
func (kd *KernelDefinition) Validate() error {
	if kd == nil {
		return fmt.Errorf("kernel definition is nil")
	}
	if kd.Name == "" {
		return fmt.Errorf("kernel name cannot be empty")
	}
	if kd.Rank != 1 && kd.Rank != 2 {
		return fmt.Errorf("kernel %s: rank must be 1 or 2, got %d", kd.Name, kd.Rank)
	}
	seen := make(map[string]bool, len(kd.Params))
	for i := range kd.Params {
		if err := kd.Params[i].Validate(); err != nil {
			return fmt.Errorf("kernel %s parameter %d: %w", kd.Name, i, err)
		}
		if seen[kd.Params[i].Name] {
			return fmt.Errorf("kernel %s: duplicate parameter %s", kd.Name, kd.Params[i].Name)
		}
		seen[kd.Params[i].Name] = true
	}
	return nil
}

// ArrayParams returns the buffer parameters in declaration order
func (kd *KernelDefinition) ArrayParams() []builder.ParamSpec {
	arrays := make([]builder.ParamSpec, 0, len(kd.Params))
	for _, p := range kd.Params {
		if !p.IsScalar {
			arrays = append(arrays, p)
		}
	}
	return arrays
}

// ScalarParams returns the by-value parameters in declaration order
func (kd *KernelDefinition) ScalarParams() []builder.ParamSpec {
	scalars := make([]builder.ParamSpec, 0)
	for _, p := range kd.Params {
		if p.IsScalar {
			scalars = append(scalars, p)
		}
	}
	return scalars
}

// Source returns the complete OKL source, preamble included
func (kd *KernelDefinition) Source() string {
	return builder.GeneratePreamble(builder.Float32, builder.INT32) +
		builder.GenerateKernel(kd.Name, kd.Params, kd.Body)
}

// GetKernelSignature generates the signature for the kernel
func (kd *KernelDefinition) GetKernelSignature() string {
	return builder.GenerateKernelSignature(kd.Params)
}
