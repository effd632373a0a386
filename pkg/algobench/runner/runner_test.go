package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/algobench/pkg/algobench/catalog"
	"github.com/jamesainslie/algobench/pkg/algobench/device"
	"github.com/jamesainslie/algobench/pkg/algobench/kernel"
	"github.com/jamesainslie/algobench/pkg/algobench/session"
	"github.com/jamesainslie/algobench/pkg/algobench/tuner"
)

func fastCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]string{"sha256d", "pipe", "xxh64"}, "pipe")
	require.NoError(t, err)
	return cat
}

func testConfig(threads int) Config {
	opts := session.DefaultOptions()
	opts.SettleDelay = 0
	opts.BarrierTimeout = 10 * time.Second

	return Config{
		Threads: threads,
		Slice:   20 * time.Millisecond,
		Backend: "sim",
		Tuner:   tuner.Options{Max: 1 << 12},
		Session: opts,
	}
}

func TestRun_Simulated(t *testing.T) {
	sim := device.NewSimulated(device.SimConfig{Devices: 2, TotalMB: 1024})

	r, err := New(testConfig(2), Deps{Catalog: fastCatalog(t), Probe: sim})
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rep.Sections, 2)
	for i, sec := range rep.Sections {
		assert.Equal(t, i, sec.Device.Index)
		require.Len(t, sec.Rows, 2, "device %d", i)
		assert.Equal(t, "sha256d", sec.Rows[0].Algorithm)
		assert.Equal(t, "xxh64", sec.Rows[1].Algorithm)

		for _, row := range sec.Rows {
			assert.Positive(t, row.Hashrate)
			assert.Equal(t, uint32(1<<12), row.Throughput)
			assert.Zero(t, row.Leaks)
		}
	}

	assert.Equal(t, "sim", rep.Meta.Backend)
	assert.Positive(t, rep.Meta.Elapsed)
	for dev := 0; dev < 2; dev++ {
		assert.Zero(t, sim.UsedMB(dev), "device %d still holds memory", dev)
	}
}

func TestRun_LeakRecorded(t *testing.T) {
	sim := device.NewSimulated(device.SimConfig{
		Devices: 1,
		TotalMB: 1024,
		Leaks:   map[string]int{"sha256d": 4},
	})
	cfg := testConfig(1)
	cfg.Tuner = tuner.Options{Min: 1 << 18, Max: 1 << 18} // 8 MiB of digests

	r, err := New(cfg, Deps{Catalog: fastCatalog(t), Probe: sim})
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	rows := rep.Sections[0].Rows
	require.NotEmpty(t, rows)
	assert.Equal(t, "sha256d", rows[0].Algorithm)
	assert.Equal(t, 1, rows[0].Leaks)
	assert.Equal(t, 8, rows[0].MemUsedMB)
	assert.GreaterOrEqual(t, sim.Resets(0), 1)
}

func TestRun_DeviceFailureStopsAllWorkers(t *testing.T) {
	sim := device.NewSimulated(device.SimConfig{Devices: 3, TotalMB: 1024})
	// Initialize, prepare and the first Advance read succeed.
	sim.FailAfter(1, 3)

	r, err := New(testConfig(3), Deps{Catalog: fastCatalog(t), Probe: sim})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, session.ErrDeviceQuery)
	case <-time.After(5 * time.Second):
		t.Fatal("Run hung after device failure")
	}
}

func TestRun_ContextCancel(t *testing.T) {
	sim := device.NewSimulated(device.SimConfig{Devices: 2})
	cfg := testConfig(2)
	cfg.Slice = time.Hour

	r, err := New(cfg, Deps{Catalog: fastCatalog(t), Probe: sim})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_MissingKernel(t *testing.T) {
	cat, err := catalog.New([]string{"sha256d", "mystery"})
	require.NoError(t, err)

	r, err := New(testConfig(1), Deps{Catalog: cat, Probe: device.NewSimulated(device.SimConfig{})})
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, kernel.ErrUnknownKernel)
}

func TestRun_OutOfDeviceMemory(t *testing.T) {
	sim := device.NewSimulated(device.SimConfig{Devices: 1, TotalMB: 4})
	cfg := testConfig(1)
	cfg.Tuner = tuner.Options{Min: 1 << 20, Max: 1 << 20} // 32 MiB of digests

	r, err := New(cfg, Deps{Catalog: fastCatalog(t), Probe: sim})
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, device.ErrOutOfMemory)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(testConfig(1), Deps{})
	assert.Error(t, err)

	_, err = New(testConfig(0), Deps{Probe: device.NewSimulated(device.SimConfig{})})
	assert.ErrorIs(t, err, session.ErrInvalidThreads)
}

func TestRelease_OutOfRange(t *testing.T) {
	r, err := New(testConfig(1), Deps{Probe: device.NewSimulated(device.SimConfig{})})
	require.NoError(t, err)

	assert.ErrorIs(t, r.Release(context.Background(), 5), session.ErrInvalidThreads)
	assert.NoError(t, r.Release(context.Background(), 0))
}
