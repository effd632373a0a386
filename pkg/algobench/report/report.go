// Package report builds the end-of-run benchmark report from recorded stats.
//
// A report has one section per device, in worker order, and one row per
// algorithm that produced a non-zero hashrate, in catalog order. Rendering
// to specific formats lives in the output package; Lines renders the
// classic text table.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/algobench/pkg/algobench/catalog"
	"github.com/jamesainslie/algobench/pkg/algobench/device"
	"github.com/jamesainslie/algobench/pkg/algobench/stats"
)

// KiloHash is the divisor used to express hashrates in kH/s.
const KiloHash = 1024.0

// Meta describes the run a report belongs to.
type Meta struct {
	RunID   uuid.UUID     `json:"run_id" yaml:"run_id"`
	Started time.Time     `json:"started" yaml:"started"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	Backend string        `json:"backend" yaml:"backend"`
	Threads int           `json:"threads" yaml:"threads"`
}

// NewMeta returns metadata for a run starting now.
func NewMeta(backend string, threads int) Meta {
	return Meta{
		RunID:   uuid.New(),
		Started: time.Now(),
		Backend: backend,
		Threads: threads,
	}
}

// Row is one algorithm's result on one device.
type Row struct {
	Algorithm  string  `json:"algorithm" yaml:"algorithm"`
	Hashrate   float64 `json:"hashrate" yaml:"hashrate"`
	KHs        float64 `json:"khs" yaml:"khs"`
	MemUsedMB  int     `json:"mem_used_mb" yaml:"mem_used_mb"`
	Throughput uint32  `json:"throughput" yaml:"throughput"`
	Leaks      int     `json:"leaks" yaml:"leaks"`
}

// Section holds the rows of one device.
type Section struct {
	Device device.Info `json:"device" yaml:"device"`
	Rows   []Row       `json:"rows" yaml:"rows"`
}

// Report is the result of a benchmark run.
type Report struct {
	Meta     Meta      `json:"meta" yaml:"meta"`
	Sections []Section `json:"devices" yaml:"devices"`
}

// Build assembles a report. Entries for devices not listed are ignored.
func Build(entries []stats.Entry, cat *catalog.Catalog, devices []device.Info, meta Meta) *Report {
	byDevice := make(map[int]map[catalog.ID]stats.Record, len(devices))
	for _, e := range entries {
		if byDevice[e.Device] == nil {
			byDevice[e.Device] = make(map[catalog.ID]stats.Record)
		}
		byDevice[e.Device][e.Algo] = e.Record
	}

	r := &Report{
		Meta:     meta,
		Sections: make([]Section, 0, len(devices)),
	}
	for _, info := range devices {
		sec := Section{Device: info, Rows: []Row{}}
		records := byDevice[info.Index]

		for _, id := range cat.IDs() {
			rec, ok := records[id]
			if !ok || rec.Hashrate == 0 {
				continue
			}
			sec.Rows = append(sec.Rows, Row{
				Algorithm:  cat.Name(id),
				Hashrate:   rec.Hashrate,
				KHs:        rec.Hashrate / KiloHash,
				MemUsedMB:  rec.MemUsedMB,
				Throughput: rec.Throughput,
				Leaks:      rec.Leaks,
			})
		}
		r.Sections = append(r.Sections, sec)
	}
	return r
}

// Rows returns the number of rows across all sections.
func (r *Report) Rows() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Rows)
	}
	return n
}

// Totals sums hashrates per algorithm across devices, in catalog order of
// first appearance.
func (r *Report) Totals() []Row {
	var order []string
	sums := make(map[string]*Row)

	for _, s := range r.Sections {
		for _, row := range s.Rows {
			t, ok := sums[row.Algorithm]
			if !ok {
				t = &Row{Algorithm: row.Algorithm}
				sums[row.Algorithm] = t
				order = append(order, row.Algorithm)
			}
			t.Hashrate += row.Hashrate
			t.MemUsedMB += row.MemUsedMB
			t.Throughput += row.Throughput
			t.Leaks += row.Leaks
		}
	}

	totals := make([]Row, len(order))
	for i, name := range order {
		t := sums[name]
		t.KHs = t.Hashrate / KiloHash
		totals[i] = *t
	}
	return totals
}

// Lines renders the classic per-device text table.
func (r *Report) Lines() []string {
	var lines []string
	for _, s := range r.Sections {
		lines = append(lines, fmt.Sprintf("Benchmark results for GPU #%d - %s:", s.Device.Index, s.Device.Name))
		for _, row := range s.Rows {
			lines = append(lines, fmt.Sprintf("%12s : %12.1f kH/s, %5d MB, %8d thr.",
				row.Algorithm, row.KHs, row.MemUsedMB, row.Throughput))
		}
	}
	return lines
}
