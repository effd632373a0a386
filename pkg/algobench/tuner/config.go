package tuner

import "math/bits"

// Throughput limits, in lanes per batch.
const (
	// MinThroughput is the smallest batch a worker will run.
	MinThroughput uint32 = 1 << 6

	// MaxThroughput caps a batch so one scan stays responsive to cancellation.
	MaxThroughput uint32 = 1 << 20

	// DefaultMemoryFraction is the share of a device's free memory a single
	// algorithm may claim for its lanes.
	DefaultMemoryFraction = 0.25
)

// Worker limits.
const (
	// MaxDevices is the largest worker pool a benchmark session accepts.
	MaxDevices = 16

	// minWorkers is the smallest pool DefaultThreads will suggest.
	minWorkers = 1
)

// Options controls throughput calculation.
type Options struct {
	// MemoryFraction is the share of free memory lanes may use.
	// Zero uses DefaultMemoryFraction.
	MemoryFraction float64

	// Min and Max clamp the result. Zero uses MinThroughput / MaxThroughput.
	Min uint32
	Max uint32
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MemoryFraction: DefaultMemoryFraction,
		Min:            MinThroughput,
		Max:            MaxThroughput,
	}
}

// Throughput returns the number of lanes an algorithm should run per batch.
//
// The calculation logic:
//   - budget is MemoryFraction of freeMB
//   - lanes is budget / laneBytes, so memory-hard algorithms get fewer lanes
//   - lanes is rounded down to a power of two
//   - the result is clamped to [Min, Max]
//
// A laneBytes of zero or less means the algorithm has no per-lane memory and
// gets Max lanes.
func Throughput(freeMB int, laneBytes int64, opts Options) uint32 {
	if opts.MemoryFraction <= 0 || opts.MemoryFraction > 1 {
		opts.MemoryFraction = DefaultMemoryFraction
	}
	if opts.Min == 0 {
		opts.Min = MinThroughput
	}
	if opts.Max == 0 {
		opts.Max = MaxThroughput
	}
	if opts.Max < opts.Min {
		opts.Max = opts.Min
	}

	if laneBytes <= 0 {
		return opts.Max
	}

	budget := float64(max(freeMB, 0)) * 1024 * 1024 * opts.MemoryFraction
	lanes := uint64(budget / float64(laneBytes))

	lanes = min(lanes, uint64(opts.Max))
	lanes = max(lanes, uint64(opts.Min))

	return floorPow2(uint32(lanes))
}

// DefaultThreads returns the worker count for a host run: one worker per
// logical core, capped at MaxDevices.
func DefaultThreads(resources SystemResources) int {
	threads := max(resources.CPUCores, minWorkers)
	return min(threads, MaxDevices)
}

// floorPow2 rounds v down to a power of two. Zero stays zero.
func floorPow2(v uint32) uint32 {
	if v == 0 {
		return 0
	}
	return 1 << (bits.Len32(v) - 1)
}
