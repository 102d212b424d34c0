package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/notargets/kernelbench/harness"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var errVerification = errors.New("verification failed")

// openHarness is replaced in tests
var openHarness = harness.New

func newBenchmarkCommand(opts *options, b harness.Benchmark) *cobra.Command {
	return &cobra.Command{
		Use:   b.Alias,
		Short: fmt.Sprintf("Run %s: %s", b.Name, b.Short),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmarks(cmd.OutOrStdout(), opts, []harness.Benchmark{b})
		},
	}
}

func newAllCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run every benchmark in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmarks(cmd.OutOrStdout(), opts, harness.Benchmarks())
		},
	}
}

func runBenchmarks(out io.Writer, opts *options, list []harness.Benchmark) (err error) {
	cfg := opts.cfg

	h, err := openHarness(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	showProgress := cfg.Runs > 1 && !opts.quiet
	var bar *progressbar.ProgressBar
	h.OnRun = func(harness.Benchmark, harness.RunResult) {
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	failed := false
	for _, b := range list {
		if showProgress {
			bar = progressbar.NewOptions(cfg.Runs,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription(b.Name),
				progressbar.OptionClearOnFinish(),
			)
		}

		res, err := h.Run(b)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return err
		}

		printResult(out, res, cfg.Verify)
		if !res.Passed() {
			failed = true
		}
	}

	if failed {
		return errVerification
	}
	return nil
}

func printResult(out io.Writer, res *harness.Result, verified bool) {
	status := "PASSED"
	switch {
	case !verified:
		status = "UNVERIFIED"
	case !res.Passed():
		status = fmt.Sprintf("FAILED %d/%d", res.Failed(), len(res.Runs))
	}
	fmt.Fprintf(out, "%-24s N=%-6d runs=%-3d device=%-8s %s\n",
		res.Benchmark, res.Size, len(res.Runs), res.Device, status)
}
