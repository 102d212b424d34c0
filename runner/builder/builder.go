package builder

import (
	"fmt"
	"strings"
)

// DataType represents the precision of numerical data
type DataType int

const (
	Float32 DataType = iota + 1
	Float64
	INT32
	INT64
)

// String returns the lower case Go name of the type
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case INT32:
		return "int32"
	case INT64:
		return "int64"
	default:
		return fmt.Sprintf("DataType(%d)", int(dt))
	}
}

// SizeOfType returns the size in bytes of a data type
func SizeOfType(dt DataType) int64 {
	switch dt {
	case Float32, INT32:
		return 4
	case Float64, INT64:
		return 8
	default:
		return 8
	}
}

// AccessMode declares how a kernel submission uses a device buffer
type AccessMode int

const (
	// Read never writes the buffer; host data is transferred if the device copy is stale
	Read AccessMode = iota + 1
	// ReadWrite transfers host data if stale and leaves the device copy authoritative
	ReadWrite
	// DiscardWrite skips the host to device transfer; prior contents are undefined to the kernel
	DiscardWrite
)

// String returns the mode name used in diagnostics
func (m AccessMode) String() string {
	switch m {
	case Read:
		return "read"
	case ReadWrite:
		return "read_write"
	case DiscardWrite:
		return "discard_write"
	default:
		return fmt.Sprintf("AccessMode(%d)", int(m))
	}
}

// Valid reports whether m is one of the declared modes
func (m AccessMode) Valid() bool {
	return m == Read || m == ReadWrite || m == DiscardWrite
}

// NeedsCopyTo returns true if the mode depends on host data being present on the device
func (m AccessMode) NeedsCopyTo() bool {
	return m == Read || m == ReadWrite
}

// Writes returns true if the mode permits the kernel to store into the buffer
func (m AccessMode) Writes() bool {
	return m == ReadWrite || m == DiscardWrite
}

// IsConst returns true if the buffer is declared const in generated kernel signatures
func (m AccessMode) IsConst() bool {
	return m == Read
}

// Range is a 1D or 2D index space. The zero value is invalid.
type Range struct {
	rank    int
	extents [2]int
}

// Range1D creates a one dimensional index space [0, n)
func Range1D(n int) Range {
	return Range{rank: 1, extents: [2]int{n, 1}}
}

// Range2D creates a rows x cols index space
func Range2D(rows, cols int) Range {
	return Range{rank: 2, extents: [2]int{rows, cols}}
}

// Rank returns the number of dimensions
func (r Range) Rank() int {
	return r.rank
}

// Get returns the extent of dimension dim
func (r Range) Get(dim int) int {
	if dim < 0 || dim >= r.rank {
		panic(fmt.Sprintf("dimension %d out of range for rank %d", dim, r.rank))
	}
	return r.extents[dim]
}

// Rows returns the extent of the first dimension
func (r Range) Rows() int {
	return r.extents[0]
}

// Cols returns the extent of the second dimension, 1 for 1D ranges
func (r Range) Cols() int {
	if r.rank < 2 {
		return 1
	}
	return r.extents[1]
}

// Count returns the total number of coordinates in the index space
func (r Range) Count() int {
	if r.rank == 0 {
		return 0
	}
	return r.Rows() * r.Cols()
}

// Offset maps a (row, col) coordinate onto row-major flat storage
func (r Range) Offset(row, col int) int {
	return row*r.Cols() + col
}

// Equal reports whether both ranges have the same rank and extents
func (r Range) Equal(o Range) bool {
	return r.rank == o.rank && r.Rows() == o.Rows() && r.Cols() == o.Cols()
}

// Validate checks that the range is usable as an index space or buffer shape
func (r Range) Validate() error {
	switch r.rank {
	case 1, 2:
	default:
		return fmt.Errorf("range rank must be 1 or 2, got %d", r.rank)
	}
	for d := 0; d < r.rank; d++ {
		if r.extents[d] <= 0 {
			return fmt.Errorf("range extent %d must be positive, got %d", d, r.extents[d])
		}
	}
	return nil
}

func (r Range) String() string {
	switch r.rank {
	case 1:
		return fmt.Sprintf("range<1>{%d}", r.extents[0])
	case 2:
		return fmt.Sprintf("range<2>{%d, %d}", r.extents[0], r.extents[1])
	default:
		return "range<0>{}"
	}
}

// GeneratePreamble generates the type definitions prepended to every kernel source
func GeneratePreamble(floatType, intType DataType) string {
	var sb strings.Builder

	floatTypeStr := "double"
	floatSuffix := ""
	if floatType == Float32 {
		floatTypeStr = "float"
		floatSuffix = "f"
	}

	intTypeStr := "long"
	if intType == INT32 {
		intTypeStr = "int"
	}

	sb.WriteString(fmt.Sprintf("typedef %s real_t;\n", floatTypeStr))
	sb.WriteString(fmt.Sprintf("typedef %s int_t;\n", intTypeStr))
	sb.WriteString(fmt.Sprintf("#define REAL_ZERO 0.0%s\n", floatSuffix))
	sb.WriteString(fmt.Sprintf("#define REAL_ONE 1.0%s\n", floatSuffix))
	sb.WriteString("\n")

	return sb.String()
}
