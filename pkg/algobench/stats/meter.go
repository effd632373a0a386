package stats

import (
	"sync"
	"time"
)

// DefaultWindow is the default number of samples averaged per worker.
const DefaultWindow = 16

// sampleRing keeps the most recent rates of one worker, oldest overwritten.
type sampleRing struct {
	rates []float64
	start int
	count int
}

func (r *sampleRing) add(rate float64) {
	idx := (r.start + r.count) % len(r.rates)
	r.rates[idx] = rate

	if r.count < len(r.rates) {
		r.count++
	} else {
		r.start = (r.start + 1) % len(r.rates)
	}
}

func (r *sampleRing) mean() float64 {
	if r.count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < r.count; i++ {
		sum += r.rates[(r.start+i)%len(r.rates)]
	}
	return sum / float64(r.count)
}

func (r *sampleRing) clear() {
	r.start = 0
	r.count = 0
}

// Meter tracks rolling hashrates. Submitted samples are averaged per worker
// over a fixed window; the latest instantaneous rate of every worker is kept
// separately and summed into the global rate.
type Meter struct {
	mu      sync.Mutex
	window  int
	samples map[int]*sampleRing
	threads map[int]float64
	global  float64
}

// NewMeter creates a meter averaging over window samples.
func NewMeter(window int) *Meter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Meter{
		window:  window,
		samples: make(map[int]*sampleRing),
		threads: make(map[int]float64),
	}
}

// Submit adds a sample of hashes computed by dev over elapsed.
// Samples with no elapsed time are ignored.
func (m *Meter) Submit(dev int, hashes uint64, elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	rate := float64(hashes) / elapsed.Seconds()

	m.mu.Lock()
	defer m.mu.Unlock()

	ring, ok := m.samples[dev]
	if !ok {
		ring = &sampleRing{rates: make([]float64, m.window)}
		m.samples[dev] = ring
	}
	ring.add(rate)

	m.threads[dev] = rate
	m.global = 0
	for _, r := range m.threads {
		m.global += r
	}
}

// Speed returns dev's average rate over the window. Without samples it
// falls back to the worker's last instantaneous rate.
func (m *Meter) Speed(dev int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ring, ok := m.samples[dev]; ok && ring.count > 0 {
		return ring.mean()
	}
	return m.threads[dev]
}

// ThreadRate returns dev's last instantaneous rate.
func (m *Meter) ThreadRate(dev int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threads[dev]
}

// GlobalRate returns the sum of the workers' last instantaneous rates.
func (m *Meter) GlobalRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.global
}

// ResetThread zeroes dev's instantaneous rate.
func (m *Meter) ResetThread(dev int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.global -= m.threads[dev]
	m.threads[dev] = 0
	if m.global < 0 {
		m.global = 0
	}
}

// PurgeAll clears every rolling sample and the global rate.
// Instantaneous per-worker rates and history are untouched.
func (m *Meter) PurgeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ring := range m.samples {
		ring.clear()
	}
	m.global = 0
}
