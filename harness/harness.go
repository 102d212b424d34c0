// Package harness is the external driver for the benchmark cases. It builds
// one queue from the configuration and drives fresh case instances through
// construct, setup, run, wait and verify.
package harness

import (
	"fmt"
	"time"

	"github.com/notargets/kernelbench/logging"
	"github.com/notargets/kernelbench/runner"
	"github.com/sirupsen/logrus"
)

// RunResult is the outcome of one case instance
type RunResult struct {
	Run      int
	Verified bool // false when verification is disabled
	Passed   bool
	Kernels  int
	Elapsed  time.Duration // device execution time summed over the run's events
}

// Result collects every run of one benchmark
type Result struct {
	Benchmark string
	Size      int
	Device    string
	Runs      []RunResult
}

// Passed reports whether every run passed
func (r *Result) Passed() bool {
	return r.Failed() == 0 && len(r.Runs) > 0
}

// Failed counts runs that did not pass verification
func (r *Result) Failed() int {
	n := 0
	for _, run := range r.Runs {
		if !run.Passed {
			n++
		}
	}
	return n
}

// Harness owns the queue shared by every run
type Harness struct {
	cfg   *Config
	queue *runner.Queue
	log   *logrus.Entry

	// OnRun, if set, is called after each completed run
	OnRun func(b Benchmark, run RunResult)
}

// New validates cfg and opens the configured backend
func New(cfg *Config) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	q := runner.NewQueueWithDepth(backend, cfg.QueueDepth)

	h := &Harness{
		cfg:   cfg,
		queue: q,
		log:   logging.Get().WithField("device", q.Mode()),
	}
	h.log.WithField("size", cfg.Size).Info("harness ready")
	return h, nil
}

// Queue returns the queue benchmark cases are built on
func (h *Harness) Queue() *runner.Queue {
	return h.queue
}

// Run drives cfg.Runs fresh instances of b. A failed verification is
// recorded in the result; any other failure stops the benchmark and is
// returned together with the runs completed so far.
func (h *Harness) Run(b Benchmark) (*Result, error) {
	res := &Result{
		Benchmark: b.Name,
		Size:      h.cfg.Size,
		Device:    h.queue.Mode(),
	}

	for i := 0; i < h.cfg.Runs; i++ {
		run, err := h.runOnce(b, i)
		if err != nil {
			return res, fmt.Errorf("%s run %d: %w", b.Name, i, err)
		}
		res.Runs = append(res.Runs, run)

		entry := h.log.WithFields(logrus.Fields{
			"benchmark": b.Name,
			"size":      h.cfg.Size,
			"run":       i,
			"elapsed":   run.Elapsed,
		})
		switch {
		case !run.Verified:
			entry.Info("run complete, verification skipped")
		case run.Passed:
			entry.Info("run verified")
		default:
			entry.Warn("run failed verification")
		}

		if h.OnRun != nil {
			h.OnRun(b, run)
		}
	}
	return res, nil
}

func (h *Harness) runOnce(b Benchmark, i int) (RunResult, error) {
	run := RunResult{Run: i}

	c, err := b.Factory(h.queue, h.cfg.Size)
	if err != nil {
		return run, err
	}
	defer c.Close()

	if err := c.Setup(); err != nil {
		return run, err
	}

	var events []*runner.Event
	if err := c.Run(&events); err != nil {
		return run, err
	}
	if err := runner.WaitAll(events); err != nil {
		return run, err
	}
	run.Kernels = len(events)
	for _, ev := range events {
		run.Elapsed += ev.Elapsed()
	}

	if !h.cfg.Verify {
		run.Passed = true
		return run, nil
	}

	ok, err := c.Verify(h.cfg.Settings())
	if err != nil {
		return run, err
	}
	run.Verified = true
	run.Passed = ok
	return run, nil
}

// RunAll runs every registered benchmark in order
func (h *Harness) RunAll() ([]*Result, error) {
	var results []*Result
	for _, b := range Benchmarks() {
		res, err := h.Run(b)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Close tears down the queue and its backend
func (h *Harness) Close() error {
	return h.queue.Close()
}

// Run is the one-shot form: open a harness for cfg, run b, close
func Run(cfg *Config, b Benchmark) (res *Result, err error) {
	h, err := New(cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return h.Run(b)
}
