package builder

import (
	"fmt"
)

// ParamBuilder provides a fluent interface for declaring kernel parameters
type ParamBuilder struct {
	Spec ParamSpec
}

// ParamSpec holds the declaration of one formal kernel parameter
type ParamSpec struct {
	Name     string
	Mode     AccessMode // zero for scalars
	IsScalar bool
	DataType DataType
}

// Array creates a buffer parameter with an explicit access mode
func Array(name string, mode AccessMode) *ParamBuilder {
	return &ParamBuilder{
		Spec: ParamSpec{
			Name:     name,
			Mode:     mode,
			DataType: Float32,
		},
	}
}

// Input creates a read-only buffer parameter
func Input(name string) *ParamBuilder {
	return Array(name, Read)
}

// Output creates a write-discard buffer parameter
func Output(name string) *ParamBuilder {
	return Array(name, DiscardWrite)
}

// InOut creates a read-write buffer parameter
func InOut(name string) *ParamBuilder {
	return Array(name, ReadWrite)
}

// Scalar creates a by-value parameter, INT32 unless Type is called
func Scalar(name string) *ParamBuilder {
	return &ParamBuilder{
		Spec: ParamSpec{
			Name:     name,
			IsScalar: true,
			DataType: INT32,
		},
	}
}

// Type sets the element type (buffers) or value type (scalars)
func (p *ParamBuilder) Type(dataType DataType) *ParamBuilder {
	p.Spec.DataType = dataType
	return p
}

// Validate checks the parameter declaration for consistency
func (ps *ParamSpec) Validate() error {
	if ps.Name == "" {
		return fmt.Errorf("parameter name cannot be empty")
	}
	if ps.DataType == 0 {
		return fmt.Errorf("parameter %s has no data type", ps.Name)
	}
	if ps.IsScalar {
		if ps.Mode != 0 {
			return fmt.Errorf("scalar %s cannot declare access mode %v", ps.Name, ps.Mode)
		}
		return nil
	}
	if !ps.Mode.Valid() {
		return fmt.Errorf("array %s has invalid access mode %v", ps.Name, ps.Mode)
	}
	return nil
}

// Specs extracts the specifications from a list of builders
func Specs(params ...*ParamBuilder) []ParamSpec {
	specs := make([]ParamSpec, len(params))
	for i, p := range params {
		specs[i] = p.Spec
	}
	return specs
}
