// Package output renders benchmark reports in various formats (pretty,
// plain, log, json, yaml, csv, etc.).
//
// Formatters are kept in a registry and selected by name at runtime:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, rep); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jamesainslie/algobench/pkg/algobench/report"
	"github.com/jamesainslie/algobench/pkg/algobench/types"
)

// ErrUnknownFormatter is returned by Get for unregistered names.
var ErrUnknownFormatter = errors.New("unknown formatter")

// Formatter renders a report.
type Formatter interface {
	// Format writes the rendered report to the buffer.
	Format(w *bytes.Buffer, r *report.Report) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory, replacing any existing one with the
// same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormatter, name)
	}
	return factory(), nil
}

// Available returns the registered formatter names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// flatRow is one report row together with its device, used by the
// tabular formatters.
type flatRow struct {
	Device     int     `json:"device" yaml:"device"`
	DeviceName string  `json:"device_name" yaml:"device_name"`
	Algorithm  string  `json:"algorithm" yaml:"algorithm"`
	Hashrate   float64 `json:"hashrate" yaml:"hashrate"`
	KHs        float64 `json:"khs" yaml:"khs"`
	MemUsedMB  int     `json:"mem_used_mb" yaml:"mem_used_mb"`
	Throughput uint32  `json:"throughput" yaml:"throughput"`
	Leaks      int     `json:"leaks" yaml:"leaks"`
}

func flatten(r *report.Report) []flatRow {
	rows := make([]flatRow, 0, r.Rows())
	for _, s := range r.Sections {
		for _, row := range s.Rows {
			rows = append(rows, flatRow{
				Device:     s.Device.Index,
				DeviceName: s.Device.Name,
				Algorithm:  row.Algorithm,
				Hashrate:   row.Hashrate,
				KHs:        row.KHs,
				MemUsedMB:  row.MemUsedMB,
				Throughput: row.Throughput,
				Leaks:      row.Leaks,
			})
		}
	}
	return rows
}

// cells renders a row as strings in header order.
func (f flatRow) cells() []string {
	return []string{
		fmt.Sprintf("%d", f.Device),
		f.DeviceName,
		f.Algorithm,
		fmt.Sprintf("%.1f", f.KHs),
		types.FormatHashrate(f.Hashrate),
		fmt.Sprintf("%d", f.MemUsedMB),
		fmt.Sprintf("%d", f.Throughput),
		fmt.Sprintf("%d", f.Leaks),
	}
}

var tableHeader = []string{"DEVICE", "NAME", "ALGO", "KH/S", "RATE", "MEM_MB", "THROUGHPUT", "LEAKS"}
