// Package session coordinates a pool of benchmark workers.
//
// Every worker runs its own compute loop on one device and calls Advance
// when it is done with the current algorithm. Advance meets all other
// workers at two barriers per round: the switch barrier, after every worker
// released and measured the finished algorithm, and the report barrier,
// after every worker logged and recorded its result. Only then does the
// shared current algorithm move on, set by whichever worker takes the
// session mutex first.
//
// A worker that cannot read its device breaks both barriers so its peers
// return instead of waiting forever; the whole run is then abandoned.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jamesainslie/algobench/pkg/algobench/barrier"
	"github.com/jamesainslie/algobench/pkg/algobench/catalog"
	"github.com/jamesainslie/algobench/pkg/algobench/device"
	"github.com/jamesainslie/algobench/pkg/algobench/logging"
	"github.com/jamesainslie/algobench/pkg/algobench/report"
	"github.com/jamesainslie/algobench/pkg/algobench/stats"
	"github.com/jamesainslie/algobench/pkg/algobench/tuner"
)

// Errors returned by the session.
var (
	// ErrDeviceQuery means a worker could not read or reset its device.
	ErrDeviceQuery = errors.New("device failure")

	// ErrClosed means the session was torn down.
	ErrClosed = errors.New("session closed")

	// ErrBarrierTimeout means a worker waited longer than BarrierTimeout
	// for its peers.
	ErrBarrierTimeout = errors.New("barrier wait timed out")

	// ErrInvalidThreads means the worker count or a worker index is out
	// of range.
	ErrInvalidThreads = errors.New("invalid worker count")

	// ErrNotInitialized means Advance was called before Initialize.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrAlreadyInitialized means Initialize was called twice.
	ErrAlreadyInitialized = errors.New("session already initialized")

	// ErrUnknownAlgorithm means the start algorithm is missing or skipped.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrNothingToRun means every algorithm in the catalog is skipped.
	ErrNothingToRun = errors.New("no algorithm to benchmark")
)

// Device reset reasons passed to Observer.ObserveReset.
const (
	ResetLeak         = "leak"
	ResetSingleDevice = "single_device"
)

// Options tunes the switch protocol.
type Options struct {
	// Start names the first algorithm. Empty starts at the catalog's first
	// active entry.
	Start string

	// LeakThresholdMB is the largest free-memory drop across a round that
	// is not treated as a leak.
	LeakThresholdMB int

	// SettleDelay and SettleRetries control re-measuring memory that a
	// device frees asynchronously.
	SettleDelay   time.Duration
	SettleRetries int

	// SingleDeviceReset resets the device after every leak-free switch
	// when the pool has one worker.
	SingleDeviceReset bool

	// BarrierTimeout bounds each barrier wait. Zero waits forever.
	BarrierTimeout time.Duration
}

// DefaultOptions returns a 1 MB leak threshold, one settle retry after a
// second and single-device resets enabled.
func DefaultOptions() Options {
	return Options{
		LeakThresholdMB:   1,
		SettleDelay:       time.Second,
		SettleRetries:     1,
		SingleDeviceReset: true,
	}
}

// Releaser frees the resources a worker holds for the current algorithm.
type Releaser interface {
	Release(ctx context.Context, thr int) error
}

// ReleaserFunc adapts a function to Releaser.
type ReleaserFunc func(ctx context.Context, thr int) error

// Release calls f.
func (f ReleaserFunc) Release(ctx context.Context, thr int) error {
	return f(ctx, thr)
}

// Logger is the logging capability the session needs. *logging.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Observer receives protocol events, typically to export metrics.
type Observer interface {
	ObserveResult(dev int, algo string, hashrate float64, memUsedMB int)
	ObserveLeak(dev int, algo string)
	ObserveReset(dev int, reason string)
	ObserveCurrent(algo string)
	ObserveRound(d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveResult(int, string, float64, int) {}
func (nopObserver) ObserveLeak(int, string)                 {}
func (nopObserver) ObserveReset(int, string)                {}
func (nopObserver) ObserveCurrent(string)                   {}
func (nopObserver) ObserveRound(time.Duration)              {}

// Deps are the session's collaborators. Probe is required.
type Deps struct {
	Catalog  *catalog.Catalog
	Probe    device.Probe
	Releaser Releaser
	Stats    *stats.Aggregator
	Logger   Logger
	Observer Observer
}

// Session is the state shared by all workers of one benchmark run.
type Session struct {
	opts     Options
	cat      *catalog.Catalog
	probe    device.Probe
	releaser Releaser
	stats    *stats.Aggregator
	log      Logger
	obs      Observer

	settle SettlePolicy
	leak   LeakPolicy
	reset  ResetPolicy

	// Set by Initialize before any worker starts; read-only afterwards.
	threads       int
	switchBarrier *barrier.Barrier
	reportBarrier *barrier.Barrier

	// baseline[i] is owned by worker i once Initialize returns.
	baseline []int

	mu          sync.Mutex
	current     catalog.ID
	round       int
	initialized bool
	closed      bool
}

// New creates a session. Call Initialize before starting workers.
func New(opts Options, deps Deps) (*Session, error) {
	if deps.Probe == nil {
		return nil, errors.New("session requires a device probe")
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Releaser == nil {
		deps.Releaser = ReleaserFunc(func(context.Context, int) error { return nil })
	}
	if deps.Stats == nil {
		deps.Stats = stats.New(stats.DefaultWindow)
	}
	if deps.Logger == nil {
		deps.Logger = logging.Get("session")
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}

	return &Session{
		opts:     opts,
		cat:      deps.Catalog,
		probe:    deps.Probe,
		releaser: deps.Releaser,
		stats:    deps.Stats,
		log:      deps.Logger,
		obs:      deps.Observer,
		settle:   SettlePolicy{Delay: opts.SettleDelay, Retries: opts.SettleRetries},
		leak:     LeakPolicy{ThresholdMB: opts.LeakThresholdMB},
		reset:    ResetPolicy{SingleDevice: opts.SingleDeviceReset},
		current:  catalog.Done,
	}, nil
}

// Initialize prepares the session for threads workers: it selects the
// first algorithm, builds both barriers and records every device's free
// memory as its baseline. It must be called once, before any worker starts.
func (s *Session) Initialize(ctx context.Context, threads int) error {
	if threads < 1 || threads > tuner.MaxDevices {
		return fmt.Errorf("%w: %d, want 1..%d", ErrInvalidThreads, threads, tuner.MaxDevices)
	}

	s.mu.Lock()
	initialized, closed := s.initialized, s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if initialized {
		return ErrAlreadyInitialized
	}

	start := s.cat.First()
	if s.opts.Start != "" {
		id, ok := s.cat.Lookup(s.opts.Start)
		if !ok || s.cat.Skipped(id) {
			return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s.opts.Start)
		}
		start = id
	}
	if start == catalog.Done {
		return ErrNothingToRun
	}

	switchBarrier, err := barrier.New(threads)
	if err != nil {
		return err
	}
	reportBarrier, err := barrier.New(threads)
	if err != nil {
		return err
	}

	baseline := make([]int, threads)
	for i := range baseline {
		free, err := s.probe.FreeMemory(ctx, i)
		if err != nil {
			return fmt.Errorf("%w: worker %d: %w", ErrDeviceQuery, i, err)
		}
		baseline[i] = free
	}

	s.threads = threads
	s.switchBarrier = switchBarrier
	s.reportBarrier = reportBarrier
	s.baseline = baseline

	s.mu.Lock()
	s.current = start
	s.round = 0
	s.initialized = true
	s.mu.Unlock()

	name := s.cat.Name(start)
	s.obs.ObserveCurrent(name)
	s.log.Info(fmt.Sprintf("Benchmark algo %s...", name), "threads", threads)
	return nil
}

// Teardown breaks both barriers with ErrClosed. Advance fails afterwards.
// It must not race with workers still inside Advance; calling it more than
// once is harmless.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	initialized := s.initialized
	s.mu.Unlock()

	if initialized {
		s.switchBarrier.Break(ErrClosed)
		s.reportBarrier.Break(ErrClosed)
	}
}

// FinalizeReport builds the report from recorded stats. It reads state
// only, so repeated calls without new records return equal reports.
func (s *Session) FinalizeReport(devices []device.Info, meta report.Meta) *report.Report {
	return report.Build(s.stats.Snapshot(), s.cat, devices, meta)
}

// Current returns the algorithm workers are benchmarking.
func (s *Session) Current() catalog.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Round returns how many switches have happened.
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Threads returns the worker count fixed by Initialize.
func (s *Session) Threads() int {
	return s.threads
}

// Baseline returns the last recorded free memory of worker thr's device.
// Only worker thr may call it while the run is in progress.
func (s *Session) Baseline(thr int) int {
	if thr < 0 || thr >= len(s.baseline) {
		return 0
	}
	return s.baseline[thr]
}

// Catalog returns the session's algorithm catalog.
func (s *Session) Catalog() *catalog.Catalog {
	return s.cat
}

// Stats returns the session's stats aggregator.
func (s *Session) Stats() *stats.Aggregator {
	return s.stats
}
