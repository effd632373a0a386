package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/algobench/pkg/algobench/catalog"
	"github.com/jamesainslie/algobench/pkg/algobench/device"
	"github.com/jamesainslie/algobench/pkg/algobench/stats"
)

func fixture(t *testing.T) (*catalog.Catalog, *stats.Aggregator, []device.Info) {
	t.Helper()

	cat, err := catalog.New([]string{"x", "y", "z"}, "z")
	require.NoError(t, err)

	agg := stats.New(4)
	agg.SetThroughput(0, 0, 256)
	agg.Record(0, 0, 2048, 2)
	agg.Record(0, 1, 0, 5) // zero hashrate, not reported
	agg.SetThroughput(1, 1, 1024)
	agg.Record(1, 1, 1024*10.5, 40)
	agg.AddLeak(1, 1)
	agg.Record(7, 0, 99, 0) // no such device

	devices := []device.Info{
		{Index: 0, Name: "Alpha"},
		{Index: 1, Name: "Beta"},
	}
	return cat, agg, devices
}

func TestBuild(t *testing.T) {
	cat, agg, devices := fixture(t)

	r := Build(agg.Snapshot(), cat, devices, NewMeta("sim", 2))

	require.Len(t, r.Sections, 2)
	assert.Equal(t, "Alpha", r.Sections[0].Device.Name)
	assert.Equal(t, []Row{{Algorithm: "x", Hashrate: 2048, KHs: 2, MemUsedMB: 2, Throughput: 256}}, r.Sections[0].Rows)

	require.Len(t, r.Sections[1].Rows, 1)
	row := r.Sections[1].Rows[0]
	assert.Equal(t, "y", row.Algorithm)
	assert.InDelta(t, 10.5, row.KHs, 1e-9)
	assert.Equal(t, 1, row.Leaks)

	assert.Equal(t, 2, r.Rows())
	assert.NotEqual(t, [16]byte{}, [16]byte(r.Meta.RunID))
}

func TestBuild_EmptyDeviceHasNoRows(t *testing.T) {
	cat, agg, _ := fixture(t)

	r := Build(agg.Snapshot(), cat, []device.Info{{Index: 3, Name: "Idle"}}, Meta{})

	require.Len(t, r.Sections, 1)
	assert.Empty(t, r.Sections[0].Rows)
	assert.Equal(t, []string{"Benchmark results for GPU #3 - Idle:"}, r.Lines())
}

func TestLines(t *testing.T) {
	cat, agg, devices := fixture(t)

	lines := Build(agg.Snapshot(), cat, devices, Meta{}).Lines()

	assert.Equal(t, []string{
		"Benchmark results for GPU #0 - Alpha:",
		"           x :          2.0 kH/s,     2 MB,      256 thr.",
		"Benchmark results for GPU #1 - Beta:",
		"           y :         10.5 kH/s,    40 MB,     1024 thr.",
	}, lines)
}

func TestBuild_Idempotent(t *testing.T) {
	cat, agg, devices := fixture(t)
	meta := NewMeta("sim", 2)

	first := Build(agg.Snapshot(), cat, devices, meta)
	second := Build(agg.Snapshot(), cat, devices, meta)

	assert.Equal(t, first, second)
}

func TestTotals(t *testing.T) {
	cat, agg, devices := fixture(t)
	agg.Record(1, 0, 1024, 1)

	totals := Build(agg.Snapshot(), cat, devices, Meta{}).Totals()

	require.Len(t, totals, 2)
	assert.Equal(t, "x", totals[0].Algorithm)
	assert.InDelta(t, 3072, totals[0].Hashrate, 1e-9)
	assert.InDelta(t, 3, totals[0].KHs, 1e-9)
	assert.Equal(t, "y", totals[1].Algorithm)
}
