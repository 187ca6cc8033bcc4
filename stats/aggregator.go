// Package stats accumulates run counters and a rolling processing-time
// average for the pipeline.
package stats

import (
	"sync"
	"time"

	"curbcam/config"

	"gonum.org/v1/gonum/stat"
)

// Snapshot is an immutable copy of the aggregator state at one instant.
type Snapshot struct {
	FrameCount int64
	Totals     map[config.Class]int64

	// AvgProcessing is the mean of the most recent timing samples, at most
	// the configured window. Valid only when HasTiming is true.
	AvgProcessing time.Duration
	HasTiming     bool
}

// Aggregator keeps monotonic per-class totals and a fixed-window ring of
// timing samples. Counters never decrease except through Reset, which zeroes
// everything atomically.
type Aggregator struct {
	mu sync.Mutex

	frameCount int64
	totals     map[config.Class]int64

	samples []float64 // seconds, ring of capacity window
	head    int
	n       int
}

// NewAggregator builds an aggregator whose rolling average spans at most
// window samples.
func NewAggregator(window int) *Aggregator {
	if window < 1 {
		window = 1
	}
	return &Aggregator{
		totals:  make(map[config.Class]int64),
		samples: make([]float64, window),
	}
}

// IncrementFrame bumps the processed-frame counter.
func (a *Aggregator) IncrementFrame() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frameCount++
}

// Increment adds count detections to a class total.
func (a *Aggregator) Increment(class config.Class, count int) {
	if count <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totals[class] += int64(count)
}

// RecordTiming stores one per-frame processing duration, displacing the
// oldest sample once the window is full.
func (a *Aggregator) RecordTiming(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples[a.head] = d.Seconds()
	a.head = (a.head + 1) % len(a.samples)
	if a.n < len(a.samples) {
		a.n++
	}
}

// Snapshot copies the current state. The rolling average is reported as
// unavailable when no samples exist rather than dividing by zero.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	totals := make(map[config.Class]int64, len(a.totals))
	for class, total := range a.totals {
		totals[class] = total
	}

	s := Snapshot{
		FrameCount: a.frameCount,
		Totals:     totals,
	}
	if a.n > 0 {
		window := make([]float64, a.n)
		start := (a.head - a.n + len(a.samples)) % len(a.samples)
		for i := 0; i < a.n; i++ {
			window[i] = a.samples[(start+i)%len(a.samples)]
		}
		s.AvgProcessing = time.Duration(stat.Mean(window, nil) * float64(time.Second))
		s.HasTiming = true
	}
	return s
}

// Reset zeroes the frame count, every class total, and the timing buffer as
// one atomic operation.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frameCount = 0
	a.totals = make(map[config.Class]int64)
	a.head = 0
	a.n = 0
}
