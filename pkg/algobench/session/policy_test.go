package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlePolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    SettlePolicy
		baseline  int
		free      int
		reads     []int
		want      int
		wantCalls int
	}{
		{name: "at baseline", policy: SettlePolicy{Retries: 3}, baseline: 100, free: 100, want: 100},
		{name: "above baseline", policy: SettlePolicy{Retries: 3}, baseline: 100, free: 120, want: 120},
		{name: "disabled", policy: SettlePolicy{}, baseline: 100, free: 90, want: 90},
		{name: "recovers on first retry", policy: SettlePolicy{Retries: 3}, baseline: 100, free: 90, reads: []int{100}, want: 100, wantCalls: 1},
		{name: "gives up", policy: SettlePolicy{Retries: 2}, baseline: 100, free: 90, reads: []int{92, 95}, want: 95, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := tt.policy.Settle(context.Background(), tt.baseline, tt.free, func() (int, error) {
				v := tt.reads[calls]
				calls++
				return v, nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestSettlePolicy_MeasureError(t *testing.T) {
	boom := errors.New("boom")
	_, err := SettlePolicy{Retries: 1}.Settle(context.Background(), 10, 5, func() (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestSettlePolicy_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := SettlePolicy{Delay: time.Hour, Retries: 1}.Settle(ctx, 10, 5, func() (int, error) {
		t.Fatal("measured after cancel")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLeakPolicy(t *testing.T) {
	p := LeakPolicy{ThresholdMB: 1}

	drop, leaked := p.Leaked(500, 498)
	assert.True(t, leaked)
	assert.Equal(t, 2, drop)

	_, leaked = p.Leaked(500, 499)
	assert.False(t, leaked)

	_, leaked = p.Leaked(500, 500)
	assert.False(t, leaked)

	_, leaked = p.Leaked(500, 600)
	assert.False(t, leaked)
}

func TestResetPolicy(t *testing.T) {
	on := ResetPolicy{SingleDevice: true}

	assert.True(t, on.ShouldReset(1, false))
	assert.False(t, on.ShouldReset(1, true))
	assert.False(t, on.ShouldReset(2, false))
	assert.False(t, ResetPolicy{}.ShouldReset(1, false))
}
