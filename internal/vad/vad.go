// Package vad implements a lightweight energy-based voice activity detector.
// It is a heuristic, not a speech classifier: the tuning goal is "don't cut
// speech off mid-sentence", so it errs toward reporting activity.
package vad

import "math"

// Config tunes the detector. Zero values are replaced by defaults.
type Config struct {
	// MinThreshold is the floor below which the adaptive threshold never
	// drops, so near-silence cannot spuriously trigger.
	MinThreshold float64
	// WindowSize is how many recent energy readings feed the adaptive
	// threshold.
	WindowSize int
	// ThresholdRatio scales the rolling average into the activity threshold.
	ThresholdRatio float64
	// MinActiveBytes is the raw-buffer size above which a buffer whose
	// samples could not be decoded is still treated as activity (decode
	// failures should not silently drop real speech).
	MinActiveBytes int
}

// DefaultConfig returns the tuning used by the capture pipeline.
func DefaultConfig() Config {
	return Config{
		MinThreshold:   0.004,
		WindowSize:     20,
		ThresholdRatio: 0.30,
		MinActiveBytes: 4096,
	}
}

// Detector keeps the rolling energy window for one capture session. Not safe
// for concurrent use; the segmenter owns it.
type Detector struct {
	cfg     Config
	history []float64
	next    int
	filled  int
}

func New(cfg Config) *Detector {
	if cfg.MinThreshold <= 0 {
		cfg.MinThreshold = DefaultConfig().MinThreshold
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultConfig().WindowSize
	}
	if cfg.ThresholdRatio <= 0 {
		cfg.ThresholdRatio = DefaultConfig().ThresholdRatio
	}
	if cfg.MinActiveBytes <= 0 {
		cfg.MinActiveBytes = DefaultConfig().MinActiveBytes
	}
	return &Detector{
		cfg:     cfg,
		history: make([]float64, cfg.WindowSize),
	}
}

// EnergyLevel computes root-mean-square amplitude: 0.0 is silence, louder
// buffers score higher.
func EnergyLevel(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Classify records the level into the rolling window and reports whether the
// buffer counts as speech. sampleCount and rawBytes describe the buffer the
// level came from: a buffer that decoded to zero samples but carries a
// substantial raw payload is treated as active, because a failed energy
// analysis must not eat real speech.
func (d *Detector) Classify(level float64, sampleCount, rawBytes int) bool {
	threshold := d.Threshold()
	d.record(level)

	if sampleCount == 0 && rawBytes >= d.cfg.MinActiveBytes {
		return true
	}
	return level > threshold
}

// Threshold returns the current adaptive threshold: a fixed ratio of the
// rolling average, floored at MinThreshold.
func (d *Detector) Threshold() float64 {
	if d.filled == 0 {
		return d.cfg.MinThreshold
	}
	var sum float64
	for i := 0; i < d.filled; i++ {
		sum += d.history[i]
	}
	adaptive := d.cfg.ThresholdRatio * (sum / float64(d.filled))
	return math.Max(d.cfg.MinThreshold, adaptive)
}

// Reset clears the rolling window. Called when the session context changes.
func (d *Detector) Reset() {
	d.next = 0
	d.filled = 0
}

func (d *Detector) record(level float64) {
	d.history[d.next] = level
	d.next = (d.next + 1) % len(d.history)
	if d.filled < len(d.history) {
		d.filled++
	}
}
