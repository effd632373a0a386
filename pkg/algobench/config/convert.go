package config

import (
	"fmt"
	"slices"

	"github.com/jamesainslie/algobench/pkg/algobench/catalog"
	"github.com/jamesainslie/algobench/pkg/algobench/device"
	"github.com/jamesainslie/algobench/pkg/algobench/logging"
	"github.com/jamesainslie/algobench/pkg/algobench/session"
	"github.com/jamesainslie/algobench/pkg/algobench/tuner"
	"github.com/jamesainslie/algobench/pkg/algobench/types"
)

// Catalog builds the algorithm catalog. The built-in skip list applies to
// whichever of its entries the catalog contains.
func (c BenchConfig) Catalog() (*catalog.Catalog, error) {
	names := c.Algorithms
	if len(names) == 0 {
		names = catalog.DefaultNames()
	}

	var skip []string
	for _, name := range catalog.DefaultSkip() {
		if slices.Contains(names, name) {
			skip = append(skip, name)
		}
	}
	skip = append(skip, c.Skip...)

	cat, err := catalog.New(names, skip...)
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}
	return cat, nil
}

// Options converts to session options. start names the first algorithm.
func (c SessionConfig) Options(start string) (session.Options, error) {
	threshold, err := types.ParseSizeMB(c.LeakThreshold)
	if err != nil {
		return session.Options{}, fmt.Errorf("%w: session.leak_threshold: %w", ErrInvalid, err)
	}

	return session.Options{
		Start:             start,
		LeakThresholdMB:   threshold,
		SettleDelay:       c.SettleDelay,
		SettleRetries:     c.SettleRetries,
		SingleDeviceReset: c.SingleDeviceReset,
		BarrierTimeout:    c.BarrierTimeout,
	}, nil
}

// Options converts to tuner options.
func (c TunerConfig) Options() tuner.Options {
	return tuner.Options{
		MemoryFraction: c.MemoryFraction,
		Min:            c.MinThroughput,
		Max:            c.MaxThroughput,
	}
}

// DeviceConfig converts to a simulated device pool configuration.
func (c SimConfig) DeviceConfig() (device.SimConfig, error) {
	total, err := types.ParseSizeMB(c.Memory)
	if err != nil {
		return device.SimConfig{}, fmt.Errorf("%w: sim.memory: %w", ErrInvalid, err)
	}

	reserved := 0
	if c.Reserved != "" {
		if reserved, err = types.ParseSizeMB(c.Reserved); err != nil {
			return device.SimConfig{}, fmt.Errorf("%w: sim.reserved: %w", ErrInvalid, err)
		}
	}
	if reserved >= total {
		return device.SimConfig{}, fmt.Errorf("%w: sim.reserved %d MB leaves no free memory", ErrInvalid, reserved)
	}

	return device.SimConfig{
		Devices:     c.Devices,
		TotalMB:     total,
		ReservedMB:  reserved,
		SettleReads: c.SettleReads,
		Leaks:       c.Leaks,
	}, nil
}

// ToLogging converts to a logging configuration. An empty or invalid
// max_size falls back to the default rotation size.
func (c LoggingConfig) ToLogging() logging.Config {
	rotation := logging.RotationConfig{
		MaxSize:    logging.DefaultRotationConfig().MaxSize,
		MaxAge:     c.Rotation.MaxAge,
		MaxBackups: c.Rotation.MaxBackups,
	}
	if c.Rotation.MaxSize != "" {
		if size, err := types.ParseSize(c.Rotation.MaxSize); err == nil && size > 0 {
			rotation.MaxSize = size
		}
	}

	path := c.Path
	if path == "" {
		path = logging.DefaultLogPath()
	}

	return logging.Config{
		Level:        c.Level,
		Path:         path,
		Rotation:     rotation,
		Components:   c.Components,
		ConsoleLevel: c.ConsoleLevel,
	}
}
