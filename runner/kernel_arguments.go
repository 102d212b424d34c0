package runner

import (
	"fmt"

	"github.com/notargets/kernelbench/runner/builder"
)

// KernelArgument represents a single kernel argument with metadata
type KernelArgument struct {
	Name     string
	Type     string
	IsConst  bool
	Category string // "scalar" or "array"
	Value    interface{}
}

// GetKernelArguments pairs the kernel's declared parameters with the values
// of one submission. This is the single source of truth for argument order.
func GetKernelArguments(def *KernelDefinition, args []Arg, scalars []interface{}) ([]KernelArgument, error) {
	info := builder.GetKernelSignatureInfo(def.Params)
	kargs := make([]KernelArgument, 0, len(info))

	arrayIdx, scalarIdx := 0, 0
	for i, p := range def.Params {
		karg := KernelArgument{
			Name:     info[i].Name,
			Type:     info[i].Type,
			IsConst:  info[i].IsConst,
			Category: info[i].Category,
		}

		if p.IsScalar {
			if scalarIdx >= len(scalars) {
				return nil, fmt.Errorf("no value provided for scalar %s", p.Name)
			}
			v, err := convertScalar(scalars[scalarIdx], p.DataType)
			if err != nil {
				return nil, fmt.Errorf("scalar %s: %w", p.Name, err)
			}
			karg.Value = v
			scalarIdx++
		} else {
			if arrayIdx >= len(args) {
				return nil, fmt.Errorf("no buffer provided for %s", p.Name)
			}
			karg.Value = args[arrayIdx].Buffer
			arrayIdx++
		}

		kargs = append(kargs, karg)
	}

	return kargs, nil
}

// buildKernelArguments constructs the OCCA argument list for kernel execution
func buildKernelArguments(def *KernelDefinition, args []Arg, scalars []interface{}) ([]interface{}, error) {
	kargs, err := GetKernelArguments(def, args, scalars)
	if err != nil {
		return nil, err
	}

	out := make([]interface{}, 0, len(kargs))
	for _, karg := range kargs {
		if karg.Category == "scalar" {
			out = append(out, karg.Value)
			continue
		}
		buf := karg.Value.(*Buffer)
		mem, err := occaStorage(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, mem.mem)
	}
	return out, nil
}

// convertScalar coerces Go numeric values to the declared scalar type
func convertScalar(v interface{}, dt builder.DataType) (interface{}, error) {
	var f float64
	switch x := v.(type) {
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case float32:
		f = float64(x)
	case float64:
		f = x
	default:
		return nil, fmt.Errorf("unsupported scalar type %T", v)
	}

	switch dt {
	case builder.INT32:
		return int32(f), nil
	case builder.INT64:
		return int64(f), nil
	case builder.Float32:
		return float32(f), nil
	case builder.Float64:
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported scalar data type %v", dt)
	}
}
