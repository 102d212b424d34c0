// Package verify compares device output against host reference values.
//
// A numeric mismatch is a normal outcome: Compare reports it through the
// returned Result and the Settings hook, never as an error.
package verify

import (
	"fmt"
	"math"

	"github.com/notargets/kernelbench/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultThreshold is the maximum relative difference for a pass (5%).
// It is an empirical constant, not derived from error propagation.
const DefaultThreshold = 0.05

// smallValue guards the division in PercentDiff
const smallValue = 1e-8

// nearZero is the magnitude below which two values are considered equal
const nearZero = 0.01

// Values is anything that can be read element by element
type Values interface {
	Len() int
	At(i int) float32
}

// Slice adapts a plain slice to Values
type Slice []float32

func (s Slice) Len() int          { return len(s) }
func (s Slice) At(i int) float32 { return s[i] }

// Mismatch carries enough context to report one failing element
type Mismatch struct {
	Index    int
	Expected float64
	Actual   float64
	Diff     float64
}

func (m Mismatch) String() string {
	return fmt.Sprintf("invalid entry at [%d]: got %g, expected %g (relative difference %.4g)",
		m.Index, m.Actual, m.Expected, m.Diff)
}

// Settings is the verification policy handed to every benchmark case
type Settings struct {
	// Threshold is the largest accepted relative difference; <= 0 means DefaultThreshold
	Threshold float64
	// Report receives the first mismatch of a failed comparison
	Report func(benchmark string, m Mismatch)
}

// DefaultSettings returns the 5% threshold with log reporting
func DefaultSettings() Settings {
	return Settings{
		Threshold: DefaultThreshold,
		Report:    LogMismatch,
	}
}

// LogMismatch is the default Report hook
func LogMismatch(benchmark string, m Mismatch) {
	logging.Get().WithField("benchmark", benchmark).Warn(m.String())
}

// Notify forwards a mismatch to the report hook, if one is set
func (s Settings) Notify(benchmark string, m *Mismatch) {
	if m == nil || s.Report == nil {
		return
	}
	s.Report(benchmark, *m)
}

// PercentDiff returns |a-b| relative to the reference a, as a fraction.
// Pairs where both magnitudes are below 0.01 compare equal.
func PercentDiff(reference, actual float64) float64 {
	if math.Abs(reference) < nearZero && math.Abs(actual) < nearZero {
		return 0
	}
	return math.Abs((reference - actual) / (reference + smallValue))
}

// Result summarises one comparison
type Result struct {
	Passed   bool
	Checked  int
	Failed   int
	First    *Mismatch
	MaxDiff  float64
	MeanDiff float64
}

// Compare checks actual against expected element-wise with PercentDiff.
// Every element is visited so the statistics cover the whole output. A
// threshold <= 0 means DefaultThreshold; CompareExact is the exact check.
func Compare(expected, actual Values, threshold float64) (Result, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if expected.Len() != actual.Len() {
		return Result{}, fmt.Errorf("compare: expected %d values, got %d", expected.Len(), actual.Len())
	}

	diffs := make([]float64, expected.Len())
	res := Result{Checked: expected.Len()}
	for i := range diffs {
		e, a := float64(expected.At(i)), float64(actual.At(i))
		d := finiteOrInf(PercentDiff(e, a))
		diffs[i] = d
		if d > threshold {
			res.Failed++
			if res.First == nil {
				res.First = &Mismatch{Index: i, Expected: e, Actual: a, Diff: d}
			}
		}
	}

	res.Passed = res.Failed == 0
	summarize(&res, diffs)
	return res, nil
}

// CompareExact checks that every value equals want
func CompareExact(actual Values, want float32) Result {
	res := Result{Checked: actual.Len()}
	diffs := make([]float64, actual.Len())
	for i := range diffs {
		a := actual.At(i)
		if a != want {
			res.Failed++
			diffs[i] = finiteOrInf(PercentDiff(float64(want), float64(a)))
			if res.First == nil {
				res.First = &Mismatch{Index: i, Expected: float64(want), Actual: float64(a), Diff: diffs[i]}
			}
		}
	}
	res.Passed = res.Failed == 0
	summarize(&res, diffs)
	return res
}

// finiteOrInf maps NaN to +Inf so NaN outputs fail and dominate the statistics
func finiteOrInf(d float64) float64 {
	if math.IsNaN(d) {
		return math.Inf(1)
	}
	return d
}

func summarize(res *Result, diffs []float64) {
	if len(diffs) == 0 {
		return
	}
	res.MaxDiff = floats.Max(diffs)
	if math.IsInf(res.MaxDiff, 1) {
		res.MeanDiff = math.Inf(1)
		return
	}
	res.MeanDiff = stat.Mean(diffs, nil)
}
