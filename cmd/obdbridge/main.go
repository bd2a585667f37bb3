// Command obdbridge runs OBD payload strings through the bridge function,
// either against an in-process host or inside a WebAssembly guest.
//
//	obdbridge process "RPM=3000"
//	printf 'RPM=3000\nSPEED=42\n' | obdbridge process
//	obdbridge wasm --module guest.wasm "TEMP=90"
//	obdbridge interactive
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/obd-bridge/bridge"
	"github.com/wippyai/obd-bridge/internal/config"
	"github.com/wippyai/obd-bridge/internal/metrics"
)

// app carries state shared by subcommands after PersistentPreRunE.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Collector

	strict   bool
	logLevel string
	metricsF bool
	memPages uint32
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "obdbridge",
		Short:         "OBD string bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.finish(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&a.strict, "strict", false, "Reject null handles and malformed input instead of replacing it")
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.BoolVar(&a.metricsF, "metrics", false, "Print call metrics to stderr on exit")
	flags.Uint32Var(&a.memPages, "memory-limit-pages", 256, "Guest memory limit in 64KiB pages")

	root.AddCommand(
		newProcessCmd(a),
		newWasmCmd(a),
		newInteractiveCmd(a),
	)
	return root
}

// setup loads environment configuration and lets explicitly set flags win.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("strict") {
		cfg.Strict = a.strict
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("metrics") {
		cfg.Metrics = a.metricsF
	}
	if flags.Changed("memory-limit-pages") {
		cfg.MemoryLimitPages = a.memPages
	}

	log, err := cfg.Logger()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log.Named(cmd.Name())
	if cfg.Metrics {
		a.metrics = metrics.New(cmd.Name())
	}
	return nil
}

func (a *app) finish(cmd *cobra.Command) error {
	if a.metrics != nil {
		if err := a.metrics.WriteText(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return nil
}

// bridgeOptions returns the options shared by every backend.
func (a *app) bridgeOptions() []bridge.Option {
	opts := []bridge.Option{
		bridge.WithStrict(a.cfg.Strict),
		bridge.WithLogger(a.log),
	}
	if obs := a.observer(); obs != nil {
		opts = append(opts, bridge.WithObserver(obs))
	}
	return opts
}

func (a *app) observer() bridge.Observer {
	if a.metrics == nil {
		return nil
	}
	return a.metrics
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
