// Package segmenter turns the continuous capture stream into bounded audio
// segments. Voice activity opens a pending segment; a silence debounce window
// or a size cap closes it.
package segmenter

import (
	"log"
	"time"

	"github.com/greffier/greffier/internal/audio"
	"github.com/greffier/greffier/internal/vad"
)

type Config struct {
	// SilenceDebounce is how long after the last detected activity an
	// inactive buffer closes the pending segment.
	SilenceDebounce time.Duration
	// MaxPendingBuffers force-flushes the pending segment once this many raw
	// buffers have accumulated, bounding transcription latency during
	// continuous speech.
	MaxPendingBuffers int
	// SampleRate of the incoming capture buffers.
	SampleRate int
}

func DefaultConfig() Config {
	return Config{
		SilenceDebounce:   1500 * time.Millisecond,
		MaxPendingBuffers: 30, // ~3s of speech at 100ms capture frames
		SampleRate:        48000,
	}
}

// Segmenter accumulates capture buffers for one session. Not safe for
// concurrent use; the pipeline feeds it from a single goroutine.
//
// Invariant: at most one pending (unflushed) buffer exists at any time, and
// every fed sample ends up in exactly one emitted segment unless the session
// is reset.
type Segmenter struct {
	cfg      Config
	detector *vad.Detector

	pending      []float32
	pendingCount int
	lastActivity time.Time

	now func() time.Time
}

func New(cfg Config, detector *vad.Detector) *Segmenter {
	if cfg.SilenceDebounce <= 0 {
		cfg.SilenceDebounce = DefaultConfig().SilenceDebounce
	}
	if cfg.MaxPendingBuffers <= 0 {
		cfg.MaxPendingBuffers = DefaultConfig().MaxPendingBuffers
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	return &Segmenter{
		cfg:      cfg,
		detector: detector,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Tests use it to drive the silence
// debounce deterministically.
func (s *Segmenter) SetClock(now func() time.Time) {
	s.now = now
}

// Feed classifies one capture buffer and returns a finalized segment when the
// buffer completes one, or nil.
func (s *Segmenter) Feed(samples []float32, rawBytes int) *audio.Segment {
	level := vad.EnergyLevel(samples)
	active := s.detector.Classify(level, len(samples), rawBytes)

	if active {
		s.pending = append(s.pending, samples...)
		s.pendingCount++
		s.lastActivity = s.now()

		if s.pendingCount >= s.cfg.MaxPendingBuffers {
			log.Printf("segmenter: force flush after %d buffers (%0.1fs)",
				s.pendingCount, float64(len(s.pending))/float64(s.cfg.SampleRate))
			return s.flush()
		}
		return nil
	}

	if len(s.pending) > 0 && s.now().Sub(s.lastActivity) >= s.cfg.SilenceDebounce {
		log.Printf("segmenter: silence flush (%0.1fs pending)",
			float64(len(s.pending))/float64(s.cfg.SampleRate))
		return s.flush()
	}
	return nil
}

// FlushFinal emits whatever is pending without waiting for the debounce.
// Called on session stop so no captured audio is silently lost.
func (s *Segmenter) FlushFinal() *audio.Segment {
	if len(s.pending) == 0 {
		return nil
	}
	log.Printf("segmenter: final flush (%0.1fs pending)",
		float64(len(s.pending))/float64(s.cfg.SampleRate))
	return s.flush()
}

// Reset drops pending audio and VAD history. Only an explicit context switch
// may discard samples this way.
func (s *Segmenter) Reset() {
	s.pending = nil
	s.pendingCount = 0
	s.lastActivity = time.Time{}
	s.detector.Reset()
}

// PendingSamples reports how many samples are buffered but not yet flushed.
func (s *Segmenter) PendingSamples() int {
	return len(s.pending)
}

func (s *Segmenter) flush() *audio.Segment {
	seg := &audio.Segment{
		Samples:    s.pending,
		SampleRate: s.cfg.SampleRate,
		Channels:   1,
		Origin:     audio.OriginRecorded,
	}
	s.pending = nil
	s.pendingCount = 0
	return seg
}
