package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/algobench/pkg/algobench/output"
	"github.com/jamesainslie/algobench/pkg/algobench/runner"
	"github.com/jamesainslie/algobench/pkg/algobench/session"
)

var benchCmd = &cobra.Command{
	Use:   "bench [algo]",
	Short: "Run the benchmark",
	Long: `Run every active algorithm on every worker and print a report.

Each worker hashes the current algorithm for one slice, then all workers
switch together. An optional argument names the algorithm to start at.

Output formats: pretty (default), plain, log, json, jsonl, yaml, csv, tsv,
markdown, and template (with --template).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBench,
}

// benchFlags maps config keys to bench flags.
var benchFlags = map[string]string{
	"bench.threads":           "threads",
	"bench.slice":             "slice",
	"bench.device":            "device",
	"bench.skip":              "skip",
	"bench.output":            "output",
	"bench.template":          "template",
	"session.leak_threshold":  "leak-threshold",
	"session.settle_delay":    "settle-delay",
	"session.barrier_timeout": "barrier-timeout",
	"metrics.addr":            "metrics-addr",
	"sim.memory":              "sim-memory",
	"sim.devices":             "sim-devices",
}

func init() {
	f := benchCmd.Flags()
	f.IntP("threads", "t", 0, "workers, one per device (0=auto)")
	f.Duration("slice", 0, "time each algorithm runs before switching (default 5s)")
	f.String("device", "", "device backend: host or sim")
	f.StringSlice("skip", nil, "algorithms to skip")
	f.StringP("output", "o", "", "output format: "+strings.Join(output.Available(), ", "))
	f.String("template", "", "Go template for -o template")
	f.String("leak-threshold", "", "free-memory drop reported as a leak (e.g. 1MB)")
	f.Duration("settle-delay", 0, "wait before re-measuring memory a device frees lazily")
	f.Bool("no-single-reset", false, "don't reset a lone device after each switch")
	f.Duration("barrier-timeout", 0, "bound each switch barrier wait (0=forever)")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address during the run")
	f.String("sim-memory", "", "simulated device memory (e.g. 4GB)")
	f.Int("sim-devices", 0, "simulated device count")
	f.StringSlice("sim-leak", nil, "simulated leak per algorithm, e.g. scrypt=2")

	for key, name := range benchFlags {
		_ = viper.BindPFlag(key, f.Lookup(name))
	}

	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if noReset, _ := cmd.Flags().GetBool("no-single-reset"); noReset {
		cfg.Session.SingleDeviceReset = false
	}
	leakFlags, _ := cmd.Flags().GetStringSlice("sim-leak")
	leaks, err := parseLeakFlags(leakFlags)
	if err != nil {
		return err
	}
	if cfg.Sim.Leaks == nil {
		cfg.Sim.Leaks = make(map[string]int, len(leaks))
	}
	maps.Copy(cfg.Sim.Leaks, leaks)

	start := cfg.Bench.Start
	if len(args) > 0 {
		start = args[0]
	}

	cat, err := cfg.Bench.Catalog()
	if err != nil {
		return err
	}
	formatter, err := selectFormatter(cfg.Bench.Output, cfg.Bench.Template)
	if err != nil {
		return err
	}
	opts, err := cfg.Session.Options(start)
	if err != nil {
		return err
	}
	probe, threads, err := newProbe(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var observer session.Observer
	if cfg.Metrics.Addr != "" {
		m, shutdown, err := serveMetrics(cfg.Metrics.Addr)
		if err != nil {
			return err
		}
		defer shutdown()
		observer = m
		printInfo("Serving metrics on %s/metrics", cfg.Metrics.Addr)
	}

	r, err := runner.New(runner.Config{
		Threads: threads,
		Slice:   cfg.Bench.Slice,
		Window:  cfg.Bench.Window,
		Backend: cfg.Bench.Device,
		Tuner:   cfg.Tuner.Options(),
		Session: opts,
	}, runner.Deps{
		Catalog:  cat,
		Probe:    probe,
		Observer: observer,
	})
	if err != nil {
		return err
	}

	printInfo("Benchmarking %d algorithms on %d %s workers, %s each...",
		len(cat.Active()), threads, cfg.Bench.Device, cfg.Bench.Slice)

	rep, err := r.Run(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			printInfo("Benchmark interrupted")
		}
		return fmt.Errorf("benchmark failed: %w", err)
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, rep); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), buf.String())
	return err
}
