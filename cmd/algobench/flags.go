package main

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/algobench/pkg/algobench/config"
	"github.com/jamesainslie/algobench/pkg/algobench/device"
	"github.com/jamesainslie/algobench/pkg/algobench/output"
	"github.com/jamesainslie/algobench/pkg/algobench/tuner"
	"github.com/jamesainslie/algobench/pkg/algobench/types"
)

// fallbackResources is used when host detection fails.
var fallbackResources = tuner.SystemResources{
	CPUCores:     4,
	TotalRAM:     8 * types.GiB,
	AvailableRAM: 4 * types.GiB,
}

// parseLeakFlags parses --sim-leak values of the form algo=size. Bare
// sizes are MB.
func parseLeakFlags(values []string) (map[string]int, error) {
	leaks := make(map[string]int, len(values))
	for _, v := range values {
		name, size, ok := strings.Cut(v, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --sim-leak %q: want algo=size", v)
		}
		mb, err := types.ParseSizeMB(size)
		if err != nil {
			return nil, fmt.Errorf("invalid --sim-leak %q: %w", v, err)
		}
		leaks[name] = mb
	}
	return leaks, nil
}

// newProbe builds the device backend named by the configuration and
// returns it with the worker count to use. A zero thread count picks one
// worker per device.
func newProbe(cfg *config.Config) (device.Probe, int, error) {
	threads := cfg.Bench.Threads

	switch cfg.Bench.Device {
	case config.DeviceSim:
		sc, err := cfg.Sim.DeviceConfig()
		if err != nil {
			return nil, 0, err
		}
		if threads == 0 {
			threads = max(sc.Devices, 1)
		}
		sc.Devices = max(sc.Devices, threads)
		return device.NewSimulated(sc), threads, nil

	case config.DeviceHost:
		if threads == 0 {
			resources, err := tuner.Detect()
			if err != nil {
				printVerbose("Failed to detect system resources, using defaults: %v", err)
				resources = fallbackResources
			}
			threads = tuner.DefaultThreads(resources)
		}
		return device.NewHost(threads), threads, nil

	default:
		return nil, 0, fmt.Errorf("%w: unknown device backend %q", config.ErrInvalid, cfg.Bench.Device)
	}
}

// selectFormatter resolves -o and --template.
func selectFormatter(name, tmpl string) (output.Formatter, error) {
	if name == "" {
		name = config.DefaultOutput
	}
	if name == "template" {
		if tmpl == "" {
			return nil, fmt.Errorf("--template is required when using -o template")
		}
		return output.NewTemplateFormatter(tmpl), nil
	}

	formatter, err := output.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", name, output.Available())
	}
	return formatter, nil
}
