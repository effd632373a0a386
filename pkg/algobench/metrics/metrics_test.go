package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveResult(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveResult(1, "sha256d", 2048, 12)

	assert.Equal(t, 2048.0, testutil.ToFloat64(m.hashrate.WithLabelValues("1", "sha256d")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.memoryUsed.WithLabelValues("1", "sha256d")))
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLeak(0, "scrypt")
	m.ObserveLeak(0, "scrypt")
	m.ObserveReset(0, "leak")
	m.ObserveReset(0, "single_device")
	m.ObserveRound(50 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.leaks.WithLabelValues("0", "scrypt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resets.WithLabelValues("0", "leak")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rounds))
	assert.Equal(t, 1, testutil.CollectAndCount(m.roundDuration))
}

func TestObserveCurrent(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCurrent("sha256d")
	m.ObserveCurrent("keccak")

	assert.Equal(t, 1, testutil.CollectAndCount(m.current))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.current.WithLabelValues("keccak")))
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) })
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveResult(0, "xxh64", 10, 1)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `algobench_hashrate_hs{algo="xxh64",device="0"} 10`))
}
