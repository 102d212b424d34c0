package runner

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/notargets/kernelbench/runner/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_Validation(t *testing.T) {
	q, _ := newHostQueue(t)
	other, _ := newHostQueue(t)

	src := mustBind(t, q, "src", ramp(8), builder.Range1D(8))
	dst := mustBind(t, q, "dst", make([]float32, 8), builder.Range1D(8))
	short := mustBind(t, q, "short", make([]float32, 4), builder.Range1D(4))
	foreign := mustBind(t, other, "foreign", make([]float32, 8), builder.Range1D(8))

	oklOnly := DefineKernel("okl_only", 1, builder.Output("out")).WithBody("")

	tests := []struct {
		name   string
		sub    Submission
		target error
	}{
		{
			name: "nil kernel",
			sub:  Submission{Range: builder.Range1D(8)},
		},
		{
			name:   "invalid range",
			sub:    Submission{Kernel: fillKernel, Range: builder.Range1D(0), Args: []Arg{Access(dst, builder.DiscardWrite)}},
			target: ErrInvalidShape,
		},
		{
			name:   "rank mismatch",
			sub:    Submission{Kernel: fillKernel, Range: builder.Range2D(2, 4), Args: []Arg{Access(dst, builder.DiscardWrite)}},
			target: ErrShapeMismatch,
		},
		{
			name:   "buffer shape mismatch",
			sub:    Submission{Kernel: fillKernel, Range: builder.Range1D(8), Args: []Arg{Access(short, builder.DiscardWrite)}},
			target: ErrShapeMismatch,
		},
		{
			name:   "mode differs from declaration",
			sub:    Submission{Kernel: fillKernel, Range: builder.Range1D(8), Args: []Arg{Access(dst, builder.ReadWrite)}},
			target: ErrAccessMode,
		},
		{
			name: "missing buffer argument",
			sub: Submission{Kernel: copyKernel, Range: builder.Range1D(8),
				Args: []Arg{Access(src, builder.Read)}, Scalars: []interface{}{8}},
		},
		{
			name: "missing scalar",
			sub: Submission{Kernel: copyKernel, Range: builder.Range1D(8),
				Args: []Arg{Access(src, builder.Read), Access(dst, builder.DiscardWrite)}},
		},
		{
			name: "nil buffer",
			sub:  Submission{Kernel: fillKernel, Range: builder.Range1D(8), Args: []Arg{{Mode: builder.DiscardWrite}}},
		},
		{
			name: "buffer from another queue",
			sub:  Submission{Kernel: fillKernel, Range: builder.Range1D(8), Args: []Arg{Access(foreign, builder.DiscardWrite)}},
		},
		{
			name: "kernel without host body",
			sub:  Submission{Kernel: oklOnly, Range: builder.Range1D(8), Args: []Arg{Access(dst, builder.DiscardWrite)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := q.Submit(tt.sub)
			require.Error(t, err)
			assert.Nil(t, ev)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}

	// nothing was queued by the rejected submissions
	require.NoError(t, q.Finish())
	q.mu.Lock()
	assert.Empty(t, q.events)
	q.mu.Unlock()
}

func TestSubmit_ReturnsBeforeCompletion(t *testing.T) {
	q, _ := newHostQueue(t)
	out := mustBind(t, q, "out", make([]float32, 32), builder.Range1D(32))

	gate := make(chan struct{})
	ev, err := q.Submit(Submission{
		Kernel: gateKernel(gate),
		Range:  builder.Range1D(32),
		Args:   []Arg{Access(out, builder.DiscardWrite)},
	})
	require.NoError(t, err)
	require.NotNil(t, ev)

	assert.False(t, ev.IsComplete())
	assert.NoError(t, ev.Err())
	assert.Zero(t, ev.Elapsed())
	assert.Equal(t, "gated", ev.Kernel())

	close(gate)
	require.NoError(t, ev.Wait())
	assert.True(t, ev.IsComplete())
	assert.GreaterOrEqual(t, ev.Latency(), ev.Elapsed())

	select {
	case <-ev.Done():
	default:
		t.Fatal("done channel should be closed after Wait")
	}
}

func TestHostRead_WaitsForPriorSubmissions(t *testing.T) {
	q, _ := newHostQueue(t)
	host := make([]float32, 16)
	out := mustBind(t, q, "out", host, builder.Range1D(16))

	gate := make(chan struct{})
	_, err := q.Submit(Submission{
		Kernel: gateKernel(gate),
		Range:  builder.Range1D(16),
		Args:   []Arg{Access(out, builder.DiscardWrite)},
	})
	require.NoError(t, err)

	type result struct {
		view *HostView
		err  error
	}
	read := make(chan result, 1)
	go func() {
		view, err := out.HostRead()
		read <- result{view, err}
	}()

	select {
	case <-read:
		t.Fatal("HostRead returned before the writing kernel finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	res := <-read
	require.NoError(t, res.err)
	for i := 0; i < res.view.Len(); i++ {
		assert.Equal(t, float32(1), res.view.At(i))
	}
	assert.Equal(t, float32(1), host[15], "the view maps the caller's array")
}

func TestSubmit_InOrderExecution(t *testing.T) {
	q, hb := newHostQueue(t)
	host := ramp(64)
	x := mustBind(t, q, "x", host, builder.Range1D(64))

	var events []*Event
	for i := 0; i < 10; i++ {
		ev, err := q.Submit(Submission{
			Kernel: incrementKernel,
			Range:  builder.Range1D(64),
			Args:   []Arg{Access(x, builder.ReadWrite)},
		})
		require.NoError(t, err)
		events = append(events, ev)
	}

	for i := 1; i < len(events); i++ {
		assert.Equal(t, events[i-1].ID()+1, events[i].ID())
	}

	view, err := x.HostRead()
	require.NoError(t, err)
	for i := 0; i < view.Len(); i++ {
		assert.Equal(t, float32(i+10), view.At(i))
	}
	for _, ev := range events {
		assert.True(t, ev.IsComplete(), "HostRead orders after every prior submission")
	}

	stats := hb.Stats()
	assert.Equal(t, int64(1), stats.Uploads, "device copy stays current between kernels")
	assert.Equal(t, int64(1), stats.Downloads)
	assert.Equal(t, int64(10), stats.Launches)
}

func TestDiscardWrite_SkipsUpload(t *testing.T) {
	q, hb := newHostQueue(t)
	host := []float32{-1, -1, -1, -1}
	out := mustBind(t, q, "out", host, builder.Range1D(4))

	_, err := q.Submit(Submission{
		Kernel: fillKernel,
		Range:  builder.Range1D(4),
		Args:   []Arg{Access(out, builder.DiscardWrite)},
	})
	require.NoError(t, err)

	view, err := out.HostRead()
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 3, 3, 3}, view.Values())
	assert.Equal(t, int64(0), hb.Stats().Uploads)

	// a second read does not copy again
	_, err = out.HostRead()
	require.NoError(t, err)
	assert.Equal(t, int64(1), hb.Stats().Downloads)
}

func TestSubmit_2DIndexSpace(t *testing.T) {
	q, _ := newHostQueue(t)
	n := 5
	a := mustBind(t, q, "A", ramp(n*n), builder.Range2D(n, n))
	b := mustBind(t, q, "B", make([]float32, n*n), builder.Range2D(n, n))

	_, err := q.Submit(Submission{
		Kernel: transposeKernel,
		Range:  builder.Range2D(n, n),
		Args:   []Arg{Access(a, builder.Read), Access(b, builder.DiscardWrite)},
	})
	require.NoError(t, err)

	view, err := b.HostRead()
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.Equal(t, float32(j*n+i), view.At2(i, j))
		}
	}
}

func TestAccessViolation_FailsEventAndRead(t *testing.T) {
	q, _ := newHostQueue(t)
	src := mustBind(t, q, "src", ramp(8), builder.Range1D(8))
	dst := mustBind(t, q, "dst", make([]float32, 8), builder.Range1D(8))

	ev, err := q.Submit(Submission{
		Kernel: violatingKernel,
		Range:  builder.Range1D(8),
		Args:   []Arg{Access(src, builder.Read), Access(dst, builder.DiscardWrite)},
	})
	require.NoError(t, err, "the violation is detected at execution, not submission")

	err = ev.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccessViolation)
	var av *AccessViolation
	require.True(t, errors.As(err, &av))
	assert.Equal(t, "src", av.Buffer)

	_, err = dst.HostRead()
	assert.ErrorIs(t, err, ErrAccessViolation)

	// the read-only input was not written and can still be mapped
	view, err := src.HostRead()
	require.NoError(t, err)
	assert.Equal(t, ramp(8), view.Values())

	assert.ErrorIs(t, q.Finish(), ErrAccessViolation)

	// a later successful write clears the failure
	_, err = q.Submit(Submission{
		Kernel: fillKernel,
		Range:  builder.Range1D(8),
		Args:   []Arg{Access(dst, builder.DiscardWrite)},
	})
	require.NoError(t, err)
	_, err = dst.HostRead()
	assert.NoError(t, err)
}

func TestSubmit_ConcurrentCallers(t *testing.T) {
	q, _ := newHostQueue(t)
	x := mustBind(t, q, "x", make([]float32, 128), builder.Range1D(128))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				_, err := q.Submit(Submission{
					Kernel: incrementKernel,
					Range:  builder.Range1D(128),
					Args:   []Arg{Access(x, builder.ReadWrite)},
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	view, err := x.HostRead()
	require.NoError(t, err)
	for i := 0; i < view.Len(); i++ {
		assert.Equal(t, float32(40), view.At(i))
	}
}

func TestQueue_Close(t *testing.T) {
	hb := NewHostBackend(2)
	q := NewQueue(hb)
	host := make([]float32, 8)
	out, err := q.Bind("out", host, builder.Range1D(8))
	require.NoError(t, err)

	gate := make(chan struct{})
	ev, err := q.Submit(Submission{
		Kernel: gateKernel(gate),
		Range:  builder.Range1D(8),
		Args:   []Arg{Access(out, builder.DiscardWrite)},
	})
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(gate)
	}()
	require.NoError(t, q.Close(), "Close drains pending submissions")
	assert.True(t, ev.IsComplete())
	assert.NoError(t, q.Close(), "Close is idempotent")

	_, err = q.Submit(Submission{
		Kernel: fillKernel,
		Range:  builder.Range1D(8),
		Args:   []Arg{Access(out, builder.DiscardWrite)},
	})
	assert.ErrorIs(t, err, ErrQueueClosed)

	_, err = out.HostRead()
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.ErrorIs(t, q.Finish(), ErrQueueClosed)
}

func TestQueue_CloseReportsKernelFailure(t *testing.T) {
	q := NewQueue(NewHostBackend(1))
	src, err := q.Bind("src", ramp(4), builder.Range1D(4))
	require.NoError(t, err)
	dst, err := q.Bind("dst", make([]float32, 4), builder.Range1D(4))
	require.NoError(t, err)

	_, err = q.Submit(Submission{
		Kernel: violatingKernel,
		Range:  builder.Range1D(4),
		Args:   []Arg{Access(src, builder.Read), Access(dst, builder.DiscardWrite)},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, q.Close(), ErrAccessViolation)
}

func TestWaitAll_FirstError(t *testing.T) {
	ok := newEvent(1, "ok")
	ok.start()
	ok.complete(nil)

	first := errors.New("first")
	bad := newEvent(2, "bad")
	bad.complete(first)

	later := newEvent(3, "later")
	later.complete(errors.New("later"))

	assert.Equal(t, first, WaitAll([]*Event{ok, bad, later}))
	assert.NoError(t, WaitAll(nil))
	assert.Zero(t, bad.Elapsed(), "never started")
}

func TestGetKernelArguments(t *testing.T) {
	q, _ := newHostQueue(t)
	src := mustBind(t, q, "src", ramp(4), builder.Range1D(4))
	dst := mustBind(t, q, "dst", make([]float32, 4), builder.Range1D(4))

	kargs, err := GetKernelArguments(copyKernel,
		[]Arg{Access(src, builder.Read), Access(dst, builder.DiscardWrite)},
		[]interface{}{4})
	require.NoError(t, err)
	require.Len(t, kargs, 3)

	assert.Equal(t, "N", kargs[0].Name)
	assert.Equal(t, "scalar", kargs[0].Category)
	assert.Equal(t, int32(4), kargs[0].Value)

	assert.Equal(t, "src", kargs[1].Name)
	assert.True(t, kargs[1].IsConst)
	assert.Same(t, src, kargs[1].Value)

	assert.Equal(t, "dst", kargs[2].Name)
	assert.False(t, kargs[2].IsConst)

	_, err = GetKernelArguments(copyKernel, nil, []interface{}{4})
	assert.Error(t, err)
	_, err = GetKernelArguments(copyKernel,
		[]Arg{Access(src, builder.Read), Access(dst, builder.DiscardWrite)},
		[]interface{}{"four"})
	assert.Error(t, err)
}

func TestKernelDefinition_Source(t *testing.T) {
	src := copyKernel.Source()
	assert.Contains(t, src, "typedef float real_t;")
	assert.Contains(t, src, "@kernel void copy(\n\tconst int N,\n\tconst real_t* src,\n\treal_t* dst\n) {")
	assert.Contains(t, src, "\t\tdst[i] = src[i];")

	assert.Error(t, DefineKernel("", 1).Validate())
	assert.Error(t, DefineKernel("r3", 3).Validate())
	assert.Error(t, DefineKernel("dup", 1, builder.Input("a"), builder.Output("a")).Validate())
	assert.NoError(t, copyKernel.Validate())
}

func TestQueue_ReleasedBuffersAreForgotten(t *testing.T) {
	q, _ := newHostQueue(t)

	keep := mustBind(t, q, "keep", make([]float32, 16), builder.Range1D(16))
	for i := 0; i < 20; i++ {
		buf := mustBind(t, q, fmt.Sprintf("tmp%d", i), make([]float32, 1<<16), builder.Range1D(1<<16))
		buf.Release()

		q.mu.Lock()
		n := len(q.buffers)
		q.mu.Unlock()
		require.Equal(t, 1, n, "iteration %d", i)
	}
	require.NoError(t, q.Finish())

	q.mu.Lock()
	require.Len(t, q.buffers, 1)
	assert.Same(t, keep, q.buffers[0])
	q.mu.Unlock()
}

func TestQueue_CompletedEventsArePruned(t *testing.T) {
	q, _ := newHostQueue(t)
	x := mustBind(t, q, "x", make([]float32, 8), builder.Range1D(8))

	sub := Submission{
		Kernel: incrementKernel,
		Range:  builder.Range1D(8),
		Args:   []Arg{Access(x, builder.ReadWrite)},
	}
	for round := 0; round < 5; round++ {
		for i := 0; i < 50; i++ {
			_, err := q.Submit(sub)
			require.NoError(t, err)
		}
		require.NoError(t, q.Finish())

		q.mu.Lock()
		assert.Empty(t, q.events, "round %d", round)
		q.mu.Unlock()
	}

	view, err := x.HostRead()
	require.NoError(t, err)
	assert.Equal(t, float32(250), view.At(0))
}

func TestQueue_PrunedFailureStillReported(t *testing.T) {
	q := NewQueue(NewHostBackend(1))
	src, err := q.Bind("src", ramp(4), builder.Range1D(4))
	require.NoError(t, err)
	dst, err := q.Bind("dst", make([]float32, 4), builder.Range1D(4))
	require.NoError(t, err)

	ev, err := q.Submit(Submission{
		Kernel: violatingKernel,
		Range:  builder.Range1D(4),
		Args:   []Arg{Access(src, builder.Read), Access(dst, builder.DiscardWrite)},
	})
	require.NoError(t, err)
	require.Error(t, ev.Wait())

	// later successful submissions prune the failed event from the list
	for i := 0; i < 3; i++ {
		_, err := q.Submit(Submission{
			Kernel: fillKernel,
			Range:  builder.Range1D(4),
			Args:   []Arg{Access(dst, builder.DiscardWrite)},
		})
		require.NoError(t, err)
	}

	assert.ErrorIs(t, q.Finish(), ErrAccessViolation)
	assert.ErrorIs(t, q.Close(), ErrAccessViolation)
}
