// Package tuner provides host resource detection and throughput calculation
// for benchmark workers.
package tuner

import (
	"runtime"
	"testing"
)

func TestDetect(t *testing.T) {
	resources, err := Detect()
	if err != nil {
		t.Fatalf("Detect() returned error: %v", err)
	}

	if resources.CPUCores != runtime.NumCPU() {
		t.Errorf("CPUCores = %d, want %d (runtime.NumCPU())", resources.CPUCores, runtime.NumCPU())
	}

	if resources.TotalRAM <= 0 {
		t.Errorf("TotalRAM = %d, want > 0", resources.TotalRAM)
	}

	if resources.AvailableRAM <= 0 {
		t.Errorf("AvailableRAM = %d, want > 0", resources.AvailableRAM)
	}

	if resources.AvailableRAM > resources.TotalRAM {
		t.Errorf("AvailableRAM (%d) > TotalRAM (%d), available should be <= total",
			resources.AvailableRAM, resources.TotalRAM)
	}
}

func TestSystemResourcesMB(t *testing.T) {
	r := SystemResources{
		TotalRAM:     8 * 1024 * 1024 * 1024,
		AvailableRAM: 1536 * 1024 * 1024,
	}

	if got := r.TotalMB(); got != 8192 {
		t.Errorf("TotalMB() = %d, want 8192", got)
	}
	if got := r.AvailableMB(); got != 1536 {
		t.Errorf("AvailableMB() = %d, want 1536", got)
	}
}

func TestThroughput(t *testing.T) {
	tests := []struct {
		name      string
		freeMB    int
		laneBytes int64
		opts      Options
		want      uint32
	}{
		{
			name:      "no lane memory gets max",
			freeMB:    1024,
			laneBytes: 0,
			opts:      DefaultOptions(),
			want:      MaxThroughput,
		},
		{
			name:      "memory hard algorithm is bounded by memory",
			freeMB:    1024,
			laneBytes: 128 * 1024, // scrypt N=1024 r=1
			opts:      DefaultOptions(),
			// 256 MiB budget / 128 KiB = 2048 lanes
			want: 2048,
		},
		{
			name:      "result rounds down to power of two",
			freeMB:    1000,
			laneBytes: 128 * 1024,
			opts:      DefaultOptions(),
			// 250 MiB / 128 KiB = 2000 -> 1024
			want: 1024,
		},
		{
			name:      "tiny device clamps to min",
			freeMB:    1,
			laneBytes: 64 * 1024 * 1024,
			opts:      DefaultOptions(),
			want:      MinThroughput,
		},
		{
			name:      "negative free memory clamps to min",
			freeMB:    -5,
			laneBytes: 1024,
			opts:      DefaultOptions(),
			want:      MinThroughput,
		},
		{
			name:      "zero options use defaults",
			freeMB:    1024,
			laneBytes: 128 * 1024,
			opts:      Options{},
			want:      2048,
		},
		{
			name:      "custom max",
			freeMB:    4096,
			laneBytes: 32,
			opts:      Options{MemoryFraction: 0.5, Min: 16, Max: 1000},
			want:      512,
		},
		{
			name:      "max below min is raised",
			freeMB:    4096,
			laneBytes: 32,
			opts:      Options{Min: 256, Max: 8},
			want:      256,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Throughput(tt.freeMB, tt.laneBytes, tt.opts)
			if got != tt.want {
				t.Errorf("Throughput(%d, %d) = %d, want %d", tt.freeMB, tt.laneBytes, got, tt.want)
			}
		})
	}
}

func TestDefaultThreads(t *testing.T) {
	tests := []struct {
		cores int
		want  int
	}{
		{cores: 0, want: 1},
		{cores: 1, want: 1},
		{cores: 8, want: 8},
		{cores: 64, want: MaxDevices},
	}

	for _, tt := range tests {
		got := DefaultThreads(SystemResources{CPUCores: tt.cores})
		if got != tt.want {
			t.Errorf("DefaultThreads(%d cores) = %d, want %d", tt.cores, got, tt.want)
		}
	}
}

func TestFloorPow2(t *testing.T) {
	tests := map[uint32]uint32{
		0:    0,
		1:    1,
		2:    2,
		3:    2,
		1000: 512,
		1024: 1024,
		1025: 1024,
	}

	for in, want := range tests {
		if got := floorPow2(in); got != want {
			t.Errorf("floorPow2(%d) = %d, want %d", in, got, want)
		}
	}
}
