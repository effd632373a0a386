// Package metrics exports benchmark progress as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jamesainslie/algobench/pkg/algobench/session"
)

// Namespace prefixes every metric name.
const Namespace = "algobench"

// Metrics holds the benchmark collectors. It implements session.Observer.
type Metrics struct {
	hashrate      *prometheus.GaugeVec
	memoryUsed    *prometheus.GaugeVec
	leaks         *prometheus.CounterVec
	resets        *prometheus.CounterVec
	roundDuration prometheus.Histogram
	rounds        prometheus.Counter
	current       *prometheus.GaugeVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		hashrate: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "hashrate_hs",
			Help:      "Measured hashrate in hashes per second by device and algorithm.",
		}, []string{"device", "algo"}),

		memoryUsed: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_used_mb",
			Help:      "Device memory consumed by an algorithm, in MiB.",
		}, []string{"device", "algo"}),

		leaks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "leaks_total",
			Help:      "Rounds in which releasing an algorithm leaked device memory.",
		}, []string{"device", "algo"}),

		resets: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "device_resets_total",
			Help:      "Forced device resets by reason.",
		}, []string{"device", "reason"}),

		roundDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "round_duration_seconds",
			Help:      "Time spent in the switch protocol per round.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms to ~16s
		}),

		rounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rounds_total",
			Help:      "Completed switch rounds.",
		}),

		current: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "current_algorithm",
			Help:      "1 for the algorithm being benchmarked, 0 otherwise.",
		}, []string{"algo"}),
	}
}

// ObserveResult sets the hashrate and memory gauges.
func (m *Metrics) ObserveResult(dev int, algo string, hashrate float64, memUsedMB int) {
	d := strconv.Itoa(dev)
	m.hashrate.WithLabelValues(d, algo).Set(hashrate)
	m.memoryUsed.WithLabelValues(d, algo).Set(float64(memUsedMB))
}

// ObserveLeak counts a leak.
func (m *Metrics) ObserveLeak(dev int, algo string) {
	m.leaks.WithLabelValues(strconv.Itoa(dev), algo).Inc()
}

// ObserveReset counts a device reset.
func (m *Metrics) ObserveReset(dev int, reason string) {
	m.resets.WithLabelValues(strconv.Itoa(dev), reason).Inc()
}

// ObserveCurrent marks algo as the running algorithm.
func (m *Metrics) ObserveCurrent(algo string) {
	m.current.Reset()
	m.current.WithLabelValues(algo).Set(1)
}

// ObserveRound records one completed round.
func (m *Metrics) ObserveRound(d time.Duration) {
	m.rounds.Inc()
	m.roundDuration.Observe(d.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ session.Observer = (*Metrics)(nil)
