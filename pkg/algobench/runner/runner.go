// Package runner drives a benchmark: one goroutine per device hashes the
// session's current algorithm for a time slice, then calls Advance, until
// the catalog is exhausted.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/algobench/pkg/algobench/catalog"
	"github.com/jamesainslie/algobench/pkg/algobench/device"
	"github.com/jamesainslie/algobench/pkg/algobench/kernel"
	"github.com/jamesainslie/algobench/pkg/algobench/logging"
	"github.com/jamesainslie/algobench/pkg/algobench/report"
	"github.com/jamesainslie/algobench/pkg/algobench/session"
	"github.com/jamesainslie/algobench/pkg/algobench/stats"
	"github.com/jamesainslie/algobench/pkg/algobench/tuner"
)

// DefaultSlice is how long each algorithm runs per device.
const DefaultSlice = 5 * time.Second

// Config configures a run.
type Config struct {
	// Threads is the number of workers, one per device.
	Threads int

	// Slice is how long each algorithm is hashed before switching.
	Slice time.Duration

	// Window is the number of rate samples averaged per worker.
	Window int

	// Backend names the device backend for the report.
	Backend string

	Tuner   tuner.Options
	Session session.Options
}

// Deps are the runner's collaborators. Probe is required.
type Deps struct {
	Catalog  *catalog.Catalog
	Probe    device.Probe
	Kernels  func(name string) (kernel.Kernel, error)
	Observer session.Observer
}

type worker struct {
	algo       catalog.ID
	tag        string
	hasher     kernel.Hasher
	throughput uint32
	nonce      uint32
}

// Runner runs one benchmark. It implements session.Releaser.
type Runner struct {
	cfg     Config
	deps    Deps
	log     *logging.Logger
	stats   *stats.Aggregator
	sess    *session.Session
	workers []*worker
}

// New creates a runner.
func New(cfg Config, deps Deps) (*Runner, error) {
	if deps.Probe == nil {
		return nil, errors.New("runner requires a device probe")
	}
	if cfg.Threads < 1 {
		return nil, fmt.Errorf("%w: %d", session.ErrInvalidThreads, cfg.Threads)
	}
	if cfg.Slice <= 0 {
		cfg.Slice = DefaultSlice
	}
	if cfg.Window <= 0 {
		cfg.Window = stats.DefaultWindow
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Kernels == nil {
		deps.Kernels = kernel.Lookup
	}

	r := &Runner{
		cfg:     cfg,
		deps:    deps,
		log:     logging.Get("runner"),
		stats:   stats.New(cfg.Window),
		workers: make([]*worker, cfg.Threads),
	}
	for i := range r.workers {
		r.workers[i] = &worker{algo: catalog.Done}
	}

	sess, err := session.New(cfg.Session, session.Deps{
		Catalog:  deps.Catalog,
		Probe:    deps.Probe,
		Releaser: r,
		Stats:    r.stats,
		Observer: deps.Observer,
	})
	if err != nil {
		return nil, err
	}
	r.sess = sess
	return r, nil
}

// Session returns the runner's session.
func (r *Runner) Session() *session.Session {
	return r.sess
}

// Run benchmarks every active algorithm on every worker and returns the
// report. The first worker error cancels the others and is returned.
func (r *Runner) Run(ctx context.Context) (*report.Report, error) {
	meta := report.NewMeta(r.cfg.Backend, r.cfg.Threads)

	if err := r.sess.Initialize(ctx, r.cfg.Threads); err != nil {
		return nil, fmt.Errorf("initializing session: %w", err)
	}
	defer r.sess.Teardown()

	r.log.Info("benchmark started",
		"run", meta.RunID, "threads", r.cfg.Threads, "slice", r.cfg.Slice, "backend", r.cfg.Backend)

	g, gctx := errgroup.WithContext(ctx)
	for thr := range r.workers {
		g.Go(func() error {
			err := r.work(gctx, thr)
			if err != nil {
				r.closeWorker(thr)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	meta.Elapsed = time.Since(meta.Started)
	r.log.Info("benchmark finished", "run", meta.RunID, "elapsed", meta.Elapsed.Round(time.Millisecond))

	return r.sess.FinalizeReport(device.Describe(r.deps.Probe, r.cfg.Threads), meta), nil
}

func (r *Runner) work(ctx context.Context, thr int) error {
	for {
		if err := r.prepare(ctx, thr); err != nil {
			return err
		}
		if err := r.hash(ctx, thr); err != nil {
			return err
		}

		more, err := r.sess.Advance(ctx, thr)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// prepare builds the hasher for the current algorithm, sized to the
// device's free memory.
func (r *Runner) prepare(ctx context.Context, thr int) error {
	w := r.workers[thr]
	algo := r.sess.Current()
	if w.hasher != nil && w.algo == algo {
		return nil
	}

	name := r.deps.Catalog.Name(algo)
	k, err := r.deps.Kernels(name)
	if err != nil {
		return fmt.Errorf("worker %d: %w", thr, err)
	}

	free, err := r.deps.Probe.FreeMemory(ctx, thr)
	if err != nil {
		return fmt.Errorf("%w: worker %d: %w", session.ErrDeviceQuery, thr, err)
	}
	throughput := tuner.Throughput(free, k.LaneBytes, r.cfg.Tuner)

	hasher := k.New(throughput)
	if alloc, ok := r.deps.Probe.(device.Allocator); ok {
		if err := alloc.Allocate(thr, name, hasher.Footprint()); err != nil {
			hasher.Close()
			return fmt.Errorf("worker %d: allocating %s: %w", thr, name, err)
		}
	}

	w.algo = algo
	w.tag = name
	w.hasher = hasher
	w.throughput = throughput
	r.stats.SetThroughput(thr, algo, throughput)

	r.log.Debug("hasher ready", "device", thr, "algo", name, "throughput", throughput, "free_mb", free)
	return nil
}

// hash runs the worker's hasher for one slice, submitting a rate sample
// per batch.
func (r *Runner) hash(ctx context.Context, thr int) error {
	w := r.workers[thr]

	sliceCtx, cancel := context.WithTimeout(ctx, r.cfg.Slice)
	defer cancel()

	for sliceCtx.Err() == nil {
		start := time.Now()
		n, err := w.hasher.Scan(sliceCtx, w.nonce, w.throughput)
		w.nonce += n
		if n > 0 {
			r.stats.Submit(thr, uint64(n), time.Since(start))
		}

		if err != nil {
			break
		}
	}

	// The slice ending is normal; the parent ending is not.
	return ctx.Err()
}

// Release frees the worker's hasher and its device allocation. The
// session calls it from Advance on the worker's own goroutine.
func (r *Runner) Release(_ context.Context, thr int) error {
	if thr < 0 || thr >= len(r.workers) {
		return fmt.Errorf("%w: worker %d", session.ErrInvalidThreads, thr)
	}
	r.closeWorker(thr)
	return nil
}

func (r *Runner) closeWorker(thr int) {
	w := r.workers[thr]
	if w.hasher == nil {
		return
	}

	w.hasher.Close()
	if alloc, ok := r.deps.Probe.(device.Allocator); ok {
		alloc.Release(thr, w.tag)
	}
	w.hasher = nil
	w.algo = catalog.Done
}

var _ session.Releaser = (*Runner)(nil)
