package commands

import (
	"github.com/notargets/kernelbench/harness"
	"github.com/notargets/kernelbench/logging"
	"github.com/spf13/cobra"
)

// options holds the global flags of one command tree
type options struct {
	cfgFile  string
	size     int
	runs     int
	device   string
	workers  int
	noVerify bool
	logLevel string
	quiet    bool

	cfg *harness.Config
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the kernelbench command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "kernelbench",
		Short: "Accelerator micro-benchmarks with host verification",
		Long: `kernelbench dispatches small numeric kernels (vector addition and the
polybench 1mm matrix product) to a device, then verifies the device output
against a deterministic host reference.

Devices: host, auto, serial, openmp, cuda, opencl, or raw OCCA properties.`,
		Version:      "0.1.0",
		SilenceUsage: true,
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return opts.load(cmd)
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is ./kernelbench.yaml)")
	flags.IntVarP(&opts.size, "size", "n", 0, "problem size N")
	flags.IntVarP(&opts.runs, "runs", "r", 0, "number of fresh instances to run")
	flags.StringVarP(&opts.device, "device", "d", "", "execution device")
	flags.IntVar(&opts.workers, "workers", 0, "host backend concurrency (0 uses GOMAXPROCS)")
	flags.BoolVar(&opts.noVerify, "no-verify", false, "skip verification")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "no progress output")

	for _, b := range harness.Benchmarks() {
		rootCmd.AddCommand(newBenchmarkCommand(opts, b))
	}
	rootCmd.AddCommand(newAllCommand(opts))
	rootCmd.AddCommand(newListCommand())

	return rootCmd
}

// load reads the configuration file and environment, then applies the
// flags that were set explicitly
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := harness.LoadConfig(o.cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("size") {
		cfg.Size = o.size
	}
	if flags.Changed("runs") {
		cfg.Runs = o.runs
	}
	if flags.Changed("device") {
		cfg.Device = o.device
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("no-verify") {
		cfg.Verify = !o.noVerify
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logging.Init(cfg.Log.Level, cfg.Log.File, cfg.Log.Console); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}
