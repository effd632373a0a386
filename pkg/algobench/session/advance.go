package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jamesainslie/algobench/pkg/algobench/barrier"
	"github.com/jamesainslie/algobench/pkg/algobench/catalog"
	"github.com/jamesainslie/algobench/pkg/algobench/types"
)

// Advance finishes the current algorithm on worker thr and moves the pool
// to the next one. Every worker must call it exactly once per round.
//
// It returns false when the catalog is exhausted; the worker must stop.
// Any error is fatal for the whole run: the barriers are broken, so peers
// return an error too.
func (s *Session) Advance(ctx context.Context, thr int) (bool, error) {
	if err := s.enter(thr); err != nil {
		return false, err
	}
	started := time.Now()

	prev := s.Current()
	candidate := s.cat.Next(prev)
	name := s.cat.Name(prev)

	memBefore, err := s.freeMemory(ctx, thr)
	if err != nil {
		return false, s.fail(thr, err)
	}

	if err := s.releaser.Release(ctx, thr); err != nil {
		return false, s.fail(thr, fmt.Errorf("releasing %s: %w", name, err))
	}

	baseline := s.baseline[thr]
	memAfter, err := s.freeMemory(ctx, thr)
	if err != nil {
		return false, s.fail(thr, err)
	}
	memAfter, err = s.settle.Settle(ctx, baseline, memAfter, func() (int, error) {
		return s.freeMemory(ctx, thr)
	})
	if err != nil {
		return false, s.fail(thr, err)
	}

	if err := s.wait(ctx, s.switchBarrier); err != nil {
		return false, s.abort(err)
	}

	hashrate := s.stats.Speed(thr)
	s.log.Info(name+" hashrate = "+types.FormatHashrate(hashrate), "device", thr)

	// The device may have caught up while peers were still finishing.
	if memAfter < baseline {
		if memAfter, err = s.freeMemory(ctx, thr); err != nil {
			return false, s.fail(thr, err)
		}
	}

	drop, leaked := s.leak.Leaked(baseline, memAfter)
	if leaked {
		s.log.Warn(fmt.Sprintf("possible %d MB memory leak in %s", drop, name),
			"device", thr, "free_mb", memAfter)
		s.stats.AddLeak(thr, prev)
		s.obs.ObserveLeak(thr, name)

		if err := s.probe.ForceReclaim(ctx, thr); err != nil {
			return false, s.fail(thr, err)
		}
		s.obs.ObserveReset(thr, ResetLeak)

		if memAfter, err = s.freeMemory(ctx, thr); err != nil {
			return false, s.fail(thr, err)
		}
	}

	memUsed := baseline - memBefore
	s.stats.Record(thr, prev, hashrate, memUsed)
	s.obs.ObserveResult(thr, name, hashrate, memUsed)
	s.baseline[thr] = memAfter

	if err := s.wait(ctx, s.reportBarrier); err != nil {
		return false, s.abort(err)
	}

	if candidate == catalog.Done {
		if thr == 0 {
			s.obs.ObserveRound(time.Since(started))
		}
		return false, nil
	}

	s.mu.Lock()
	switched := s.current == prev
	if switched {
		s.stats.PurgeAll()
		s.current = candidate
		s.round++
	}
	s.stats.ResetThread(thr)
	s.mu.Unlock()

	next := s.cat.Name(candidate)
	if switched {
		s.obs.ObserveCurrent(next)
	}

	if s.reset.ShouldReset(s.threads, leaked) {
		if err := s.probe.ForceReclaim(ctx, thr); err != nil {
			return false, s.fail(thr, err)
		}
		s.obs.ObserveReset(thr, ResetSingleDevice)
	}

	if thr == 0 {
		s.log.Info(fmt.Sprintf("Benchmark algo %s...", next))
		s.obs.ObserveRound(time.Since(started))
	}
	return true, nil
}

func (s *Session) enter(thr int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return ErrClosed
	case !s.initialized:
		return ErrNotInitialized
	case thr < 0 || thr >= s.threads:
		return fmt.Errorf("%w: worker %d of %d", ErrInvalidThreads, thr, s.threads)
	}
	return nil
}

func (s *Session) freeMemory(ctx context.Context, thr int) (int, error) {
	return s.probe.FreeMemory(ctx, thr)
}

// wait blocks on b, bounded by BarrierTimeout when set.
func (s *Session) wait(ctx context.Context, b *barrier.Barrier) error {
	if s.opts.BarrierTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, s.opts.BarrierTimeout, ErrBarrierTimeout)
		defer cancel()
	}

	_, err := b.Wait(ctx)
	return err
}

// fail wraps a worker's device error and aborts the run.
func (s *Session) fail(thr int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return s.abort(err)
	}
	return s.abort(fmt.Errorf("%w: worker %d: %w", ErrDeviceQuery, thr, err))
}

// abort breaks both barriers so no peer stays blocked, and returns err.
func (s *Session) abort(err error) error {
	s.switchBarrier.Break(err)
	s.reportBarrier.Break(err)
	s.log.Error("benchmark aborted", "error", err)
	return err
}
