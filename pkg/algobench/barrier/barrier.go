// Package barrier provides a reusable rendezvous point for a fixed number of
// goroutines.
//
// Each trip of the barrier starts a new generation, so the same Barrier can
// be waited on for an unbounded number of rounds. A barrier can be broken:
// every current and future waiter then returns the break error instead of
// blocking, which lets a failing participant release its peers.
package barrier

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrBroken is returned by Wait once the barrier has been broken.
var ErrBroken = errors.New("barrier broken")

// Barrier is a generation-counted, auto-resetting barrier.
// It is safe for concurrent use.
type Barrier struct {
	mu      sync.Mutex
	parties int
	arrived int
	gen     uint64
	release chan struct{}
	err     error
}

// New creates a barrier that trips once parties goroutines have arrived.
func New(parties int) (*Barrier, error) {
	if parties < 1 {
		return nil, fmt.Errorf("barrier parties must be positive, got %d", parties)
	}
	return &Barrier{
		parties: parties,
		release: make(chan struct{}),
	}, nil
}

// Parties returns the number of arrivals needed to trip the barrier.
func (b *Barrier) Parties() int {
	return b.parties
}

// Generation returns the number of times the barrier has tripped.
func (b *Barrier) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

// Waiting returns the number of goroutines blocked in the current generation.
func (b *Barrier) Waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.arrived
}

// Err returns the break error, or nil while the barrier is intact.
func (b *Barrier) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Wait blocks until all parties have called Wait for the current generation.
// It returns the generation that was completed.
//
// If ctx is done before the barrier trips, the barrier is broken with the
// context's cause; the remaining parties can no longer complete the round.
func (b *Barrier) Wait(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	if b.err != nil {
		err := b.err
		b.mu.Unlock()
		return 0, err
	}

	gen := b.gen
	b.arrived++
	if b.arrived == b.parties {
		b.arrived = 0
		b.gen++
		close(b.release)
		b.release = make(chan struct{})
		b.mu.Unlock()
		return gen + 1, nil
	}

	release := b.release
	b.mu.Unlock()

	select {
	case <-release:
	case <-ctx.Done():
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.gen > gen {
			return gen + 1, nil
		}
		b.breakLocked(context.Cause(ctx))
		return 0, b.err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// A trip that completed our generation wins over a later break.
	if b.gen > gen {
		return gen + 1, nil
	}
	return 0, b.err
}

// Break poisons the barrier. Blocked and future waiters return an error
// wrapping both ErrBroken and cause. Only the first cause is kept.
func (b *Barrier) Break(cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.breakLocked(cause)
}

func (b *Barrier) breakLocked(cause error) {
	if b.err != nil {
		return
	}

	if cause == nil {
		b.err = ErrBroken
	} else {
		b.err = fmt.Errorf("%w: %w", ErrBroken, cause)
	}
	close(b.release)
}
