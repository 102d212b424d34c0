package builder

import (
	"fmt"
	"strings"
)

// GenerateKernelSignature generates the parameter list for an OKL kernel
// in declaration order
func GenerateKernelSignature(params []ParamSpec) string {
	parts := make([]string, 0, len(params))

	for _, p := range params {
		if p.IsScalar {
			parts = append(parts, fmt.Sprintf("const %s %s", scalarTypeName(p.DataType), p.Name))
			continue
		}
		constStr := ""
		if p.Mode.IsConst() {
			constStr = "const "
		}
		parts = append(parts, fmt.Sprintf("%s%s* %s", constStr, arrayTypeName(p.DataType), p.Name))
	}

	return strings.Join(parts, ",\n\t")
}

// GenerateKernelDeclaration generates a complete kernel function declaration
func GenerateKernelDeclaration(kernelName string, params []ParamSpec) string {
	return fmt.Sprintf("@kernel void %s(\n\t%s\n)",
		kernelName,
		GenerateKernelSignature(params))
}

// GenerateKernel wraps an OKL body in the kernel declaration
func GenerateKernel(kernelName string, params []ParamSpec, body string) string {
	var sb strings.Builder

	sb.WriteString(GenerateKernelDeclaration(kernelName, params))
	sb.WriteString(" {\n")

	for _, line := range strings.Split(strings.Trim(body, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString("\t")
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString("}\n")

	return sb.String()
}

// KernelParameter is structured information about one generated kernel argument
type KernelParameter struct {
	Type     string
	Name     string
	IsConst  bool
	Category string // "scalar" or "array"
}

// GetKernelSignatureInfo returns the argument list in the order arguments are passed
func GetKernelSignatureInfo(params []ParamSpec) []KernelParameter {
	info := make([]KernelParameter, 0, len(params))
	for _, p := range params {
		if p.IsScalar {
			info = append(info, KernelParameter{
				Type:     scalarTypeName(p.DataType),
				Name:     p.Name,
				IsConst:  true,
				Category: "scalar",
			})
			continue
		}
		info = append(info, KernelParameter{
			Type:     arrayTypeName(p.DataType) + "*",
			Name:     p.Name,
			IsConst:  p.Mode.IsConst(),
			Category: "array",
		})
	}
	return info
}

func arrayTypeName(dt DataType) string {
	switch dt {
	case INT32, INT64:
		return "int_t"
	default:
		return "real_t"
	}
}

func scalarTypeName(dt DataType) string {
	switch dt {
	case Float32:
		return "float"
	case Float64:
		return "double"
	case INT64:
		return "long"
	default:
		return "int"
	}
}
