// Package tuner provides host resource detection and throughput calculation
// for benchmark workers. It detects CPU cores and RAM, then sizes each
// worker's batch (its "throughput") from the memory an algorithm needs per
// lane and the memory the device has free.
package tuner

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the available (free) RAM in bytes.
	// This may be an estimate based on system heuristics.
	AvailableRAM int64
}

// AvailableMB returns AvailableRAM in whole MiB.
func (r SystemResources) AvailableMB() int {
	return int(r.AvailableRAM / (1024 * 1024))
}

// TotalMB returns TotalRAM in whole MiB.
func (r SystemResources) TotalMB() int {
	return int(r.TotalRAM / (1024 * 1024))
}
