package segmenter

import (
	"testing"
	"time"

	"github.com/greffier/greffier/internal/audio"
	"github.com/greffier/greffier/internal/vad"
)

// fakeClock steps a fixed interval per Feed call.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) advance() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func newTestSegmenter(cfg Config) (*Segmenter, *fakeClock) {
	s := New(cfg, vad.New(vad.DefaultConfig()))
	clock := &fakeClock{now: time.Unix(1000, 0), step: 100 * time.Millisecond}
	s.SetClock(clock.advance)
	return s, clock
}

// tone returns an "active" buffer, quiet returns a silent one. Buffer length
// 4800 is 100ms at 48kHz.
func tone(n int) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		if i%2 == 0 {
			buf[i] = 0.5
		} else {
			buf[i] = -0.5
		}
	}
	return buf
}

func quiet(n int) []float32 {
	return make([]float32, n)
}

func TestForceFlushBoundsSegmentSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPendingBuffers = 2
	s, _ := newTestSegmenter(cfg)

	if seg := s.Feed(tone(4800), 4800*4); seg != nil {
		t.Fatal("first active buffer should not flush yet")
	}
	seg := s.Feed(tone(4800), 4800*4)
	if seg == nil {
		t.Fatal("second active buffer should force-flush")
	}
	if len(seg.Samples) != 9600 {
		t.Errorf("flushed %d samples, want 9600", len(seg.Samples))
	}
	if s.PendingSamples() != 0 {
		t.Errorf("pending after flush = %d, want 0", s.PendingSamples())
	}
	if seg.Origin != audio.OriginRecorded {
		t.Errorf("origin = %q, want recorded", seg.Origin)
	}
}

func TestSilenceDebounceFlush(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPendingBuffers = 100 // keep the force flush out of the way
	cfg.SilenceDebounce = 1500 * time.Millisecond
	s, _ := newTestSegmenter(cfg)

	// 3 seconds of speech in 100ms buffers.
	for i := 0; i < 30; i++ {
		if seg := s.Feed(tone(4800), 4800*4); seg != nil {
			t.Fatalf("unexpected flush during speech at buffer %d", i)
		}
	}

	// Silence. The flush must only fire once 1.5s has elapsed since the last
	// activity, and produce the whole ~3s segment.
	var got *audio.Segment
	for i := 0; i < 20 && got == nil; i++ {
		got = s.Feed(quiet(4800), 4800*4)
	}
	if got == nil {
		t.Fatal("silence never flushed the pending segment")
	}
	wantDur := 3.0
	if d := got.Duration(); d < wantDur-0.01 || d > wantDur+0.01 {
		t.Errorf("segment duration = %v, want ~%v", d, wantDur)
	}
}

func TestSilenceAloneNeverFlushes(t *testing.T) {
	s, _ := newTestSegmenter(DefaultConfig())
	for i := 0; i < 50; i++ {
		if seg := s.Feed(quiet(4800), 4800*4); seg != nil {
			t.Fatal("silence with no pending audio must not emit segments")
		}
	}
}

func TestFinalFlushOnStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPendingBuffers = 100
	s, _ := newTestSegmenter(cfg)

	s.Feed(tone(4800), 4800*4)
	seg := s.FlushFinal()
	if seg == nil {
		t.Fatal("stop must flush pending audio without waiting for debounce")
	}
	if len(seg.Samples) != 4800 {
		t.Errorf("flushed %d samples, want 4800", len(seg.Samples))
	}
	if s.FlushFinal() != nil {
		t.Error("second final flush should be a no-op")
	}
}

func TestNoSamplesLostOrDuplicated(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPendingBuffers = 3
	s, _ := newTestSegmenter(cfg)

	// Interleave speech and silence; every fed active sample must appear in
	// exactly one emitted segment.
	var fed, emitted int
	collect := func(seg *audio.Segment) {
		if seg != nil {
			emitted += len(seg.Samples)
		}
	}

	for round := 0; round < 5; round++ {
		for i := 0; i < 7; i++ {
			buf := tone(4800)
			fed += len(buf)
			collect(s.Feed(buf, len(buf)*4))
		}
		for i := 0; i < 20; i++ {
			collect(s.Feed(quiet(4800), 4800*4))
		}
	}
	collect(s.FlushFinal())

	if emitted != fed {
		t.Errorf("emitted %d samples, fed %d (lost or duplicated audio)", emitted, fed)
	}
}

func TestResetDropsPending(t *testing.T) {
	s, _ := newTestSegmenter(DefaultConfig())
	s.Feed(tone(4800), 4800*4)
	s.Reset()
	if s.PendingSamples() != 0 {
		t.Error("reset should drop pending audio")
	}
	if s.FlushFinal() != nil {
		t.Error("nothing should remain to flush after reset")
	}
}
