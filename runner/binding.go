// File: runner/binding.go

package runner

import (
	"fmt"

	"github.com/notargets/kernelbench/runner/builder"
	"gonum.org/v1/gonum/mat"
)

// DeviceMemory is the backend-owned storage behind one buffer
type DeviceMemory interface {
	Bytes() int64
	Free()
}

// Buffer binds a host-owned array to device storage. The host slice stays
// owned by the caller; the buffer only mediates transfers.
//
// Transfer state (deviceValid, hostStale, err) is touched only by the queue
// worker once the buffer has been published by Bind.
type Buffer struct {
	Name  string
	host  []float32
	shape builder.Range
	queue *Queue
	mem   DeviceMemory

	deviceValid bool  // device copy holds current data
	hostStale   bool  // device holds writes not yet copied back
	err         error // failure of the last kernel that wrote this buffer
	released    bool
}

// Shape returns the logical shape bound on top of the flat host storage
func (b *Buffer) Shape() builder.Range {
	return b.shape
}

// Len returns the number of bound elements
func (b *Buffer) Len() int {
	return b.shape.Count()
}

// Bytes returns the device footprint of the buffer
func (b *Buffer) Bytes() int64 {
	return int64(b.Len()) * realSize
}

// Bind creates a device binding over host with the given logical shape.
// Only the first shape.Count() elements of host are bound.
func (q *Queue) Bind(name string, host []float32, shape builder.Range) (*Buffer, error) {
	return q.bind(name, host, shape, false)
}

// BindPrefetched is Bind followed by an eager host to device transfer, so the
// first Read or ReadWrite submission finds the device copy current
func (q *Queue) BindPrefetched(name string, host []float32, shape builder.Range) (*Buffer, error) {
	return q.bind(name, host, shape, true)
}

func (q *Queue) bind(name string, host []float32, shape builder.Range, prefetch bool) (*Buffer, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("bind %s: %w: %v", name, ErrInvalidShape, err)
	}
	if shape.Count() > len(host) {
		return nil, fmt.Errorf("bind %s: %w: %v needs %d elements, host array has %d",
			name, ErrShapeMismatch, shape, shape.Count(), len(host))
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, fmt.Errorf("bind %s: %w", name, ErrQueueClosed)
	}

	buf := &Buffer{
		Name:  name,
		host:  host[:shape.Count()],
		shape: shape,
		queue: q,
	}

	mem, err := q.backend.Allocate(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate device memory for %s: %w", name, err)
	}
	buf.mem = mem
	q.buffers = append(q.buffers, buf)

	if prefetch {
		q.enqueue(func() {
			if err := q.upload(buf); err != nil {
				buf.err = err
			}
		})
	}

	return buf, nil
}

// Release frees the device storage once all prior submissions have run. The
// host array is left untouched.
func (b *Buffer) Release() {
	q := b.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || b.released {
		return
	}
	b.released = true
	q.forget(b)
	q.enqueue(func() { q.releaseBuffer(b) })
}

// Arg declares the use of one buffer by one submission
type Arg struct {
	Buffer *Buffer
	Mode   builder.AccessMode
}

// Access declares buffer access with an explicit mode for a single submission
func Access(buf *Buffer, mode builder.AccessMode) Arg {
	return Arg{Buffer: buf, Mode: mode}
}

// Accessor is a kernel-side view scoped to one submission. Indexing follows
// the bound shape.
type Accessor struct {
	name  string
	mode  builder.AccessMode
	shape builder.Range
	data  []float32
}

// NewAccessor wraps device-side storage for a kernel body
func NewAccessor(arg Arg, data []float32) *Accessor {
	return &Accessor{
		name:  arg.Buffer.Name,
		mode:  arg.Mode,
		shape: arg.Buffer.shape,
		data:  data,
	}
}

// Mode returns the access mode of the view
func (a *Accessor) Mode() builder.AccessMode { return a.mode }

// Shape returns the bound shape
func (a *Accessor) Shape() builder.Range { return a.shape }

// Len returns the number of elements visible through the view
func (a *Accessor) Len() int { return len(a.data) }

// At reads the element at flat index i
func (a *Accessor) At(i int) float32 {
	return a.data[i]
}

// At2 reads element (row, col)
func (a *Accessor) At2(row, col int) float32 {
	return a.data[a.shape.Offset(row, col)]
}

// Set stores v at flat index i
func (a *Accessor) Set(i int, v float32) {
	a.checkWrite(i)
	a.data[i] = v
}

// Set2 stores v at (row, col)
func (a *Accessor) Set2(row, col int, v float32) {
	a.Set(a.shape.Offset(row, col), v)
}

// Add2 accumulates v into (row, col)
func (a *Accessor) Add2(row, col int, v float32) {
	i := a.shape.Offset(row, col)
	a.checkWrite(i)
	a.data[i] += v
}

func (a *Accessor) checkWrite(i int) {
	if !a.mode.Writes() {
		panic(&AccessViolation{Buffer: a.name, Mode: a.mode, Index: i})
	}
}

// HostView is a read-only host view obtained from HostRead
type HostView struct {
	name  string
	shape builder.Range
	data  []float32
}

// HostRead waits for every prior submission on the buffer's queue, copies
// device writes back into the host array and returns a read-only view of it.
//
// This is a blocking "wait and map" call and the only synchronisation point
// between submitted kernels and host code. If a kernel that wrote the buffer
// failed, its error is returned instead of a view.
func (b *Buffer) HostRead() (*HostView, error) {
	q := b.queue
	done := make(chan error, 1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, fmt.Errorf("host read %s: %w", b.Name, ErrQueueClosed)
	}
	if b.released {
		q.mu.Unlock()
		return nil, fmt.Errorf("host read %s: buffer has been released", b.Name)
	}
	q.enqueue(func() { done <- q.mapForRead(b) })
	q.mu.Unlock()

	if err := <-done; err != nil {
		return nil, fmt.Errorf("host read %s: %w", b.Name, err)
	}

	return &HostView{name: b.Name, shape: b.shape, data: b.host}, nil
}

// Name returns the buffer name
func (hv *HostView) Name() string { return hv.name }

// Shape returns the bound shape
func (hv *HostView) Shape() builder.Range { return hv.shape }

// Len returns the number of elements in the view
func (hv *HostView) Len() int { return len(hv.data) }

// At reads the element at flat index i
func (hv *HostView) At(i int) float32 { return hv.data[i] }

// At2 reads element (row, col)
func (hv *HostView) At2(row, col int) float32 {
	return hv.data[hv.shape.Offset(row, col)]
}

// Values returns a copy of the viewed elements
func (hv *HostView) Values() []float32 {
	out := make([]float32, len(hv.data))
	copy(out, hv.data)
	return out
}

// Dense returns a float64 copy of the view as a gonum matrix. 1D views
// become a single column.
func (hv *HostView) Dense() *mat.Dense {
	rows, cols := hv.shape.Rows(), hv.shape.Cols()
	data := make([]float64, len(hv.data))
	for i, v := range hv.data {
		data[i] = float64(v)
	}
	return mat.NewDense(rows, cols, data)
}
