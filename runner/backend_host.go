package runner

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/notargets/kernelbench/runner/builder"
	"golang.org/x/sync/errgroup"
)

// HostMode is the mode name reported by HostBackend
const HostMode = "Host"

// HostBackend runs kernel Go bodies on a bounded set of goroutines. Device
// storage is a separate slice per buffer so transfers behave as they would
// on a discrete device.
type HostBackend struct {
	workers int

	uploads   atomic.Int64
	downloads atomic.Int64
	launches  atomic.Int64
}

// HostStats counts backend operations
type HostStats struct {
	Uploads   int64
	Downloads int64
	Launches  int64
}

// NewHostBackend creates a host backend; workers <= 0 uses GOMAXPROCS
func NewHostBackend(workers int) *HostBackend {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &HostBackend{workers: workers}
}

type hostMemory struct {
	data []float32
}

func (m *hostMemory) Bytes() int64 { return int64(len(m.data)) * realSize }

func (m *hostMemory) Free() { m.data = nil }

func (hb *HostBackend) Mode() string { return HostMode }

// Workers returns the launch concurrency limit
func (hb *HostBackend) Workers() int { return hb.workers }

// Stats returns a snapshot of the operation counters
func (hb *HostBackend) Stats() HostStats {
	return HostStats{
		Uploads:   hb.uploads.Load(),
		Downloads: hb.downloads.Load(),
		Launches:  hb.launches.Load(),
	}
}

func (hb *HostBackend) Validate(def *KernelDefinition) error {
	if def.Host == nil {
		return fmt.Errorf("kernel %s has no host body", def.Name)
	}
	return nil
}

func (hb *HostBackend) Allocate(buf *Buffer) (DeviceMemory, error) {
	return &hostMemory{data: make([]float32, buf.Len())}, nil
}

func (hb *HostBackend) Upload(buf *Buffer) error {
	mem, err := hostStorage(buf)
	if err != nil {
		return err
	}
	copy(mem.data, buf.host)
	hb.uploads.Add(1)
	return nil
}

func (hb *HostBackend) Download(buf *Buffer) error {
	mem, err := hostStorage(buf)
	if err != nil {
		return err
	}
	copy(buf.host, mem.data)
	hb.downloads.Add(1)
	return nil
}

// Launch splits the index space into contiguous chunks of work-items and
// runs them through an errgroup limited to the worker count. A store through
// a read-only accessor panics inside the body and is returned as an error.
func (hb *HostBackend) Launch(def *KernelDefinition, rng builder.Range, args []Arg, _ []interface{}) error {
	accessors := make([]*Accessor, len(args))
	for i, arg := range args {
		mem, err := hostStorage(arg.Buffer)
		if err != nil {
			return err
		}
		accessors[i] = NewAccessor(arg, mem.data)
	}

	total := rng.Count()
	chunk := (total + hb.workers*4 - 1) / (hb.workers * 4)
	if chunk < 1 {
		chunk = 1
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(hb.workers)
	for start := 0; start < total; start += chunk {
		end := min(start+chunk, total)
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			return runChunk(def.Host, rng, accessors, start, end)
		})
	}
	hb.launches.Add(1)
	return g.Wait()
}

func runChunk(body HostBody, rng builder.Range, accessors []*Accessor, start, end int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if av, ok := r.(*AccessViolation); ok {
				err = av
				return
			}
			err = fmt.Errorf("kernel panic: %v", r)
		}
	}()
	for linear := start; linear < end; linear++ {
		body(itemAt(rng, linear), accessors)
	}
	return nil
}

func (hb *HostBackend) Free() {}

func hostStorage(buf *Buffer) (*hostMemory, error) {
	mem, ok := buf.mem.(*hostMemory)
	if !ok || mem == nil {
		return nil, fmt.Errorf("buffer %s has no host backend storage", buf.Name)
	}
	return mem, nil
}
