//go:build darwin

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect detects available system resources (CPU and RAM).
// On darwin (macOS), it uses runtime.NumCPU() for CPU cores and
// unix.SysctlUint64 for memory information.
func Detect() (SystemResources, error) {
	resources := SystemResources{
		CPUCores: runtime.NumCPU(),
	}

	totalRAM, err := getTotalRAM()
	if err != nil {
		return resources, fmt.Errorf("failed to get total RAM: %w", err)
	}
	resources.TotalRAM = totalRAM
	resources.AvailableRAM = getAvailableRAM(totalRAM)

	return resources, nil
}

// getTotalRAM retrieves the total physical memory on darwin using sysctl.
func getTotalRAM() (int64, error) {
	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0, fmt.Errorf("sysctl hw.memsize: %w", err)
	}

	return int64(memsize), nil
}

// getAvailableRAM estimates available memory on darwin.
// Precise figures need host_statistics; free pages from vm.page_free_count
// are used when the sysctl exists, otherwise half of total RAM.
func getAvailableRAM(totalRAM int64) int64 {
	pages, err := unix.SysctlUint32("vm.page_free_count")
	if err != nil {
		return totalRAM / 2
	}
	return int64(pages) * int64(unix.Getpagesize())
}
