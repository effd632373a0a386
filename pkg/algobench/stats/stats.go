// Package stats stores per-device, per-algorithm benchmark results and the
// rolling hashrate samples workers submit while an algorithm runs.
package stats

import (
	"sort"
	"sync"

	"github.com/jamesainslie/algobench/pkg/algobench/catalog"
)

// Key identifies one history entry.
type Key struct {
	Device int
	Algo   catalog.ID
}

// Record is the result of benchmarking one algorithm on one device.
type Record struct {
	// Hashrate is the measured rate in hashes per second.
	Hashrate float64 `json:"hashrate" yaml:"hashrate"`

	// MemUsedMB is the device memory the algorithm consumed while running.
	MemUsedMB int `json:"mem_used_mb" yaml:"mem_used_mb"`

	// Throughput is the tuned batch size the worker ran with.
	Throughput uint32 `json:"throughput" yaml:"throughput"`

	// Leaks counts rounds in which releasing the algorithm leaked memory.
	Leaks int `json:"leaks" yaml:"leaks"`
}

// Entry is a Record together with its key.
type Entry struct {
	Key
	Record
}

// Aggregator holds benchmark history for a run. History is never purged;
// it lives until the report is built. Safe for concurrent use.
type Aggregator struct {
	mu      sync.RWMutex
	history map[Key]Record

	*Meter
}

// New creates an aggregator whose meter averages over window samples.
func New(window int) *Aggregator {
	return &Aggregator{
		history: make(map[Key]Record),
		Meter:   NewMeter(window),
	}
}

// Record stores the hashrate and memory consumption of algo on dev.
// The throughput and leak count already recorded for the key are kept.
func (a *Aggregator) Record(dev int, algo catalog.ID, hashrate float64, memUsedMB int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := Key{Device: dev, Algo: algo}
	r := a.history[k]
	r.Hashrate = max(hashrate, 0)
	r.MemUsedMB = memUsedMB
	a.history[k] = r
}

// SetThroughput records the tuned batch size of algo on dev.
func (a *Aggregator) SetThroughput(dev int, algo catalog.ID, throughput uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := Key{Device: dev, Algo: algo}
	r := a.history[k]
	r.Throughput = throughput
	a.history[k] = r
}

// AddLeak counts one leak for algo on dev.
func (a *Aggregator) AddLeak(dev int, algo catalog.ID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := Key{Device: dev, Algo: algo}
	r := a.history[k]
	r.Leaks++
	a.history[k] = r
}

// Get returns the record for algo on dev.
func (a *Aggregator) Get(dev int, algo catalog.ID) (Record, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	r, ok := a.history[Key{Device: dev, Algo: algo}]
	return r, ok
}

// Len returns the number of history entries.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.history)
}

// Snapshot returns a copy of the history sorted by device, then algorithm.
func (a *Aggregator) Snapshot() []Entry {
	a.mu.RLock()
	entries := make([]Entry, 0, len(a.history))
	for k, r := range a.history {
		entries = append(entries, Entry{Key: k, Record: r})
	}
	a.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Device != entries[j].Device {
			return entries[i].Device < entries[j].Device
		}
		return entries[i].Algo < entries[j].Algo
	})
	return entries
}
