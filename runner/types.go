// runner/types.go
package runner

import (
	"errors"
	"fmt"

	"github.com/notargets/kernelbench/runner/builder"
)

// Configuration errors. These surface at bind or submission time and are
// never turned into silent no-ops.
var (
	// ErrQueueClosed is returned for any operation on a torn down queue
	ErrQueueClosed = errors.New("queue has been closed")
	// ErrShapeMismatch is returned when an index space and a buffer shape disagree
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInvalidShape is returned for ranges with a bad rank or non-positive extent
	ErrInvalidShape = errors.New("invalid shape")
	// ErrAccessViolation is returned when a kernel stores through a read-only accessor
	ErrAccessViolation = errors.New("access violation")
	// ErrAccessMode is returned when a submission's access mode differs from the kernel declaration
	ErrAccessMode = errors.New("access mode mismatch")
)

// AccessViolation records a store through an accessor whose mode does not permit it
type AccessViolation struct {
	Buffer string
	Mode   builder.AccessMode
	Index  int
}

func (av *AccessViolation) Error() string {
	return fmt.Sprintf("write to %s buffer %s at index %d", av.Mode, av.Buffer, av.Index)
}

// Unwrap lets errors.Is match ErrAccessViolation
func (av *AccessViolation) Unwrap() error {
	return ErrAccessViolation
}

// realSize is the size in bytes of the working floating point type
var realSize = builder.SizeOfType(builder.Float32)
