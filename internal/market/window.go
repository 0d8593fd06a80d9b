package market

import (
	"sort"
	"sync"
	"time"
)

// Sample is one bucket of the rolling price window.
type Sample struct {
	Time   time.Time `msgpack:"t"`
	Close  float64   `msgpack:"c"`
	Volume float64   `msgpack:"v"`
}

// Window keeps the most recent samples in time order, one per bucket.
type Window struct {
	mu       sync.RWMutex
	size     int
	interval time.Duration
	samples  []Sample
}

func NewWindow(size int, interval time.Duration) *Window {
	if size <= 0 {
		size = 200
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Window{size: size, interval: interval}
}

// Load replaces the window contents with the newest samples.
func (w *Window) Load(samples []Sample) {
	sorted := append([]Sample(nil), samples...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = trim(sorted, w.size)
}

// Observe folds a price into the bucket containing at. A later bucket is
// appended; a price for the current bucket replaces its close; prices older
// than the newest bucket are dropped.
func (w *Window) Observe(at time.Time, price float64) {
	w.observe(at, price, 0, false)
}

// ObserveCandle stores a finished or in-progress candle, replacing close and volume.
func (w *Window) ObserveCandle(s Sample) {
	w.observe(s.Time, s.Close, s.Volume, true)
}

func (w *Window) observe(at time.Time, price, volume float64, setVolume bool) {
	if price <= 0 {
		return
	}
	bucket := at.UTC().Truncate(w.interval)
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.samples)
	if n > 0 {
		lastBucket := w.samples[n-1].Time.UTC().Truncate(w.interval)
		switch {
		case bucket.Equal(lastBucket):
			w.samples[n-1].Close = price
			if setVolume {
				w.samples[n-1].Volume = volume
			}
			return
		case bucket.Before(lastBucket):
			return
		}
	}
	w.samples = trim(append(w.samples, Sample{Time: bucket, Close: price, Volume: volume}), w.size)
}

func (w *Window) Samples() []Sample {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]Sample(nil), w.samples...)
}

func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.samples)
}

func (w *Window) Latest() (Sample, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.samples) == 0 {
		return Sample{}, false
	}
	return w.samples[len(w.samples)-1], true
}

func Closes(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Close
	}
	return out
}

func Volumes(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Volume
	}
	return out
}

func trim(samples []Sample, size int) []Sample {
	if len(samples) <= size {
		return samples
	}
	return append([]Sample(nil), samples[len(samples)-size:]...)
}
