package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/algobench/pkg/algobench/tuner"
)

func TestSimulated_AllocateAndRelease(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulated(SimConfig{Devices: 1, TotalMB: 1000})

	free, err := sim.FreeMemory(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000, free)

	require.NoError(t, sim.Allocate(0, "x", 200*MiB))
	free, err = sim.FreeMemory(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 800, free)
	assert.Equal(t, 200, sim.UsedMB(0))

	sim.Release(0, "x")
	free, err = sim.FreeMemory(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000, free)
	assert.Zero(t, sim.UsedMB(0))
}

func TestSimulated_ReservedMemory(t *testing.T) {
	sim := NewSimulated(SimConfig{Devices: 1, TotalMB: 1000, ReservedMB: 100})

	free, err := sim.FreeMemory(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 900, free)
}

func TestSimulated_OutOfMemory(t *testing.T) {
	sim := NewSimulated(SimConfig{Devices: 1, TotalMB: 10})

	err := sim.Allocate(0, "big", 11*MiB)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestSimulated_Leak(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulated(SimConfig{Devices: 1, TotalMB: 1000, Leaks: map[string]int{"x": 2}})

	require.NoError(t, sim.Allocate(0, "x", 100*MiB))
	sim.Release(0, "x")

	free, err := sim.FreeMemory(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 998, free)

	require.NoError(t, sim.ForceReclaim(ctx, 0))
	free, err = sim.FreeMemory(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000, free)
	assert.Equal(t, 1, sim.Resets(0))
}

func TestSimulated_LeakCappedByAllocation(t *testing.T) {
	sim := NewSimulated(SimConfig{Devices: 1, TotalMB: 1000})
	sim.SetLeak("x", 50)

	require.NoError(t, sim.Allocate(0, "x", 10*MiB))
	sim.Release(0, "x")

	free, err := sim.FreeMemory(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 990, free)
}

func TestSimulated_SettleReads(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulated(SimConfig{Devices: 1, TotalMB: 1000, SettleReads: 1})

	require.NoError(t, sim.Allocate(0, "x", 300*MiB))
	sim.Release(0, "x")

	// First read after release is stale.
	free, err := sim.FreeMemory(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 700, free)

	free, err = sim.FreeMemory(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000, free)
}

func TestSimulated_RoundsToNearestMiB(t *testing.T) {
	sim := NewSimulated(SimConfig{Devices: 1, TotalMB: 500})

	// 499.5 MiB free rounds to 500.
	require.NoError(t, sim.Allocate(0, "x", MiB/2))
	free, err := sim.FreeMemory(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 500, free)
}

func TestSimulated_FailAfter(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulated(SimConfig{Devices: 2, TotalMB: 100})
	sim.FailAfter(1, 1)

	_, err := sim.FreeMemory(ctx, 1)
	require.NoError(t, err)

	_, err = sim.FreeMemory(ctx, 1)
	assert.ErrorIs(t, err, ErrQuery)
	assert.ErrorIs(t, sim.ForceReclaim(ctx, 1), ErrQuery)

	// Other devices are unaffected.
	_, err = sim.FreeMemory(ctx, 0)
	assert.NoError(t, err)

	sim.FailAfter(1, -1)
	_, err = sim.FreeMemory(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, sim.Queries(1))
}

func TestSimulated_UnknownDevice(t *testing.T) {
	sim := NewSimulated(SimConfig{Devices: 1})

	_, err := sim.FreeMemory(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNoDevice)
	assert.ErrorIs(t, err, ErrQuery)
	assert.ErrorIs(t, sim.Allocate(-1, "x", 1), ErrNoDevice)
}

func TestSimulated_CancelledContext(t *testing.T) {
	sim := NewSimulated(DefaultSimConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.FreeMemory(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulated_Devices(t *testing.T) {
	sim := NewSimulated(SimConfig{Devices: 2, TotalMB: 2048, Names: []string{"Alpha"}})

	infos := sim.Devices()
	require.Len(t, infos, 2)
	assert.Equal(t, "Alpha", infos[0].Name)
	assert.Equal(t, "Simulated Device 1", infos[1].Name)
	assert.Equal(t, 2048, infos[1].TotalMB)
}

func TestHost_FreeMemory(t *testing.T) {
	h := NewHost(2)
	h.detect = func() (tuner.SystemResources, error) {
		return tuner.SystemResources{
			CPUCores:     2,
			TotalRAM:     4096 * MiB,
			AvailableRAM: 1024 * MiB,
		}, nil
	}

	free, err := h.FreeMemory(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1024, free)

	_, err = h.FreeMemory(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNoDevice)

	assert.NoError(t, h.ForceReclaim(context.Background(), 0))

	infos := h.Devices()
	require.Len(t, infos, 2)
	assert.Equal(t, 4096, infos[0].TotalMB)
	assert.Contains(t, infos[1].Name, "cpu 1")
}

func TestHost_DetectFailure(t *testing.T) {
	h := NewHost(1)
	h.detect = func() (tuner.SystemResources, error) {
		return tuner.SystemResources{}, errors.New("sysinfo unavailable")
	}

	_, err := h.FreeMemory(context.Background(), 0)
	assert.ErrorIs(t, err, ErrQuery)
}

func TestDescribe(t *testing.T) {
	infos := Describe(NewSimulated(SimConfig{Devices: 4}), 2)
	assert.Len(t, infos, 2)

	generic := Describe(probeOnly{}, 3)
	require.Len(t, generic, 3)
	assert.Equal(t, 2, generic[2].Index)
}

type probeOnly struct{}

func (probeOnly) FreeMemory(context.Context, int) (int, error) { return 0, nil }
func (probeOnly) ForceReclaim(context.Context, int) error      { return nil }
