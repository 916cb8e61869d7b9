package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/greffier/greffier/internal/audio"
	"github.com/greffier/greffier/internal/capture"
	"github.com/greffier/greffier/internal/config"
	"github.com/greffier/greffier/internal/segmenter"
	"github.com/greffier/greffier/internal/testutil"
	"github.com/greffier/greffier/internal/transcriber"
	"github.com/greffier/greffier/internal/transcript"
	"github.com/greffier/greffier/internal/vad"
)

const frameSamples = 4800 // 100ms at 48kHz

func testOptions() Options {
	return Options{
		VAD: vad.DefaultConfig(),
		Segmenter: segmenter.Config{
			SilenceDebounce:   60 * time.Millisecond,
			MaxPendingBuffers: 100,
			SampleRate:        48000,
		},
		Dispatcher: transcriber.DispatcherConfig{
			Tier:            transcriber.TierStandard,
			MinSegmentBytes: 100,
			QueueDepth:      16,
			Guard:           transcriber.DefaultGuardConfig(),
		},
		Assembler: transcript.DefaultConfig(),
		Timeout:   time.Minute,
		DrainWait: 3 * time.Second,
	}
}

func toneFrames(n int) []capture.Frame {
	frames := make([]capture.Frame, n)
	for i := range frames {
		frames[i] = testutil.FrameOf(testutil.Tone(frameSamples, 0.5, 48000))
	}
	return frames
}

func silenceFrames(n int) []capture.Frame {
	frames := make([]capture.Frame, n)
	for i := range frames {
		frames[i] = testutil.FrameOf(testutil.Silence(frameSamples))
	}
	return frames
}

func TestSpeechThenSilenceProducesTranscript(t *testing.T) {
	frames := append(toneFrames(10), silenceFrames(30)...)
	src := testutil.NewMockSource(frames)
	src.Interval = 5 * time.Millisecond
	adapter := &testutil.MockAdapter{}
	notifier := &testutil.RecordingNotifier{}

	p := New(testOptions(), Deps{Source: src, Bridge: adapter, Notifier: notifier})
	p.Run(context.Background())
	defer p.Stop()

	// The silence debounce should close and dispatch the segment while the
	// session is still running.
	testutil.WaitForCondition(t, func() bool {
		return p.Transcript() != ""
	}, 3*time.Second)

	if p.Status() != Recording {
		t.Fatalf("session should still be recording, got %s", p.Status())
	}
	if !strings.Contains(p.Transcript(), "mock transcription") {
		t.Fatalf("unexpected transcript: %q", p.Transcript())
	}

	p.Actions() <- Finish
	testutil.WaitForCondition(t, func() bool {
		return p.Status() == Stopped
	}, 5*time.Second)
}

func TestFinishFlushesPendingAudio(t *testing.T) {
	src := testutil.NewMockSource(toneFrames(10))
	src.Interval = 2 * time.Millisecond
	adapter := &testutil.MockAdapter{}

	p := New(testOptions(), Deps{Source: src, Bridge: adapter})
	p.Run(context.Background())
	defer p.Stop()

	// Let all frames flow in; no silence means nothing has flushed yet.
	time.Sleep(300 * time.Millisecond)
	if p.Transcript() != "" {
		t.Fatalf("no segment should have closed during continuous speech, got %q", p.Transcript())
	}

	p.Actions() <- Finish
	testutil.WaitForCondition(t, func() bool {
		return p.Status() == Stopped
	}, 5*time.Second)

	if !strings.Contains(p.Transcript(), "mock transcription") {
		t.Fatalf("final flush lost the pending audio: %q", p.Transcript())
	}
	if adapter.Calls() != 1 {
		t.Fatalf("expected exactly one dispatched segment, got %d", adapter.Calls())
	}
}

func TestStopFlushesPendingAudio(t *testing.T) {
	src := testutil.NewMockSource(toneFrames(10))
	src.Interval = 2 * time.Millisecond
	adapter := &testutil.MockAdapter{}

	p := New(testOptions(), Deps{Source: src, Bridge: adapter})
	p.Run(context.Background())

	// Let everything buffer, then cancel the session instead of sending
	// Finish. The final flush happens after the run context is gone, so the
	// dispatch pump must outlive it.
	time.Sleep(300 * time.Millisecond)
	p.Stop()

	if p.Status() != Stopped {
		t.Fatalf("expected stopped session, got %s", p.Status())
	}
	if adapter.Calls() != 1 {
		t.Fatalf("final flush should have been dispatched exactly once, got %d calls", adapter.Calls())
	}
	if !strings.Contains(p.Transcript(), "mock transcription") {
		t.Fatalf("cancelled session lost the pending audio: %q", p.Transcript())
	}
}

func TestDefaultTuningProducesTranscript(t *testing.T) {
	cfg := config.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	opts := Options{
		VAD:        cfg.ToVADConfig(),
		Segmenter:  cfg.ToSegmenterConfig(),
		Dispatcher: cfg.ToDispatcherConfig("", "test-host"),
		Assembler:  transcript.DefaultConfig(),
		Timeout:    time.Minute,
		DrainWait:  3 * time.Second,
	}

	// 3s of speech at the default 100ms frame size reaches the forced-flush
	// cap, so the segment closes without waiting out the silence debounce.
	frames := append(toneFrames(30), silenceFrames(20)...)
	src := testutil.NewMockSource(frames)
	src.Interval = 2 * time.Millisecond
	adapter := &testutil.MockAdapter{}

	p := New(opts, Deps{Source: src, Bridge: adapter})
	p.Run(context.Background())
	defer p.Stop()

	testutil.WaitForCondition(t, func() bool {
		return adapter.Calls() >= 1
	}, 3*time.Second)

	p.Actions() <- Finish
	testutil.WaitForCondition(t, func() bool {
		return p.Status() == Stopped
	}, 5*time.Second)

	if adapter.Calls() != 1 {
		t.Fatalf("expected one ~3s segment from the forced flush, got %d calls", adapter.Calls())
	}
	if !strings.Contains(p.Transcript(), "mock transcription") {
		t.Fatalf("default tuning swallowed the speech: %q", p.Transcript())
	}
}

func TestPauseDiscardsAudio(t *testing.T) {
	frames := append(silenceFrames(5), toneFrames(10)...)
	src := testutil.NewMockSource(frames)
	src.Interval = 20 * time.Millisecond
	adapter := &testutil.MockAdapter{}

	p := New(testOptions(), Deps{Source: src, Bridge: adapter})
	p.Run(context.Background())
	defer p.Stop()

	testutil.WaitForCondition(t, func() bool {
		return p.Status() == Recording
	}, time.Second)
	p.Actions() <- Pause
	testutil.WaitForCondition(t, func() bool {
		return p.Status() == Paused
	}, time.Second)

	// The tone frames arrive while paused and must not be buffered.
	time.Sleep(400 * time.Millisecond)

	p.Actions() <- Finish
	testutil.WaitForCondition(t, func() bool {
		return p.Status() == Stopped
	}, 5*time.Second)

	if p.Transcript() != "" {
		t.Fatalf("paused audio leaked into transcript: %q", p.Transcript())
	}
	if adapter.Calls() != 0 {
		t.Fatalf("no segment should have been dispatched, got %d calls", adapter.Calls())
	}
}

func TestBridgeFailureFallsBackToLocal(t *testing.T) {
	src := testutil.NewMockSource(toneFrames(10))
	src.Interval = 2 * time.Millisecond
	bridge := &testutil.MockAdapter{
		AdapterName: "bridge",
		TranscribeFunc: func(ctx context.Context, wav []byte) (transcriber.Result, error) {
			return transcriber.Result{}, errors.New("bridge exploded")
		},
	}
	local := &testutil.MockAdapter{
		AdapterName: "local",
		TranscribeFunc: func(ctx context.Context, wav []byte) (transcriber.Result, error) {
			return transcriber.Result{Text: "local text"}, nil
		},
	}

	p := New(testOptions(), Deps{Source: src, Bridge: bridge, Local: local})
	p.Run(context.Background())
	defer p.Stop()

	time.Sleep(200 * time.Millisecond)
	p.Actions() <- Finish
	testutil.WaitForCondition(t, func() bool {
		return p.Status() == Stopped
	}, 5*time.Second)

	if bridge.Calls() == 0 {
		t.Fatal("bridge was never attempted")
	}
	if !strings.Contains(p.Transcript(), "local text") {
		t.Fatalf("fallback result missing from transcript: %q", p.Transcript())
	}
}

func TestCaptureStartFailure(t *testing.T) {
	src := testutil.NewMockSource(nil)
	src.StartError = errors.New("pw-record not found")
	notifier := &testutil.RecordingNotifier{}

	p := New(testOptions(), Deps{Source: src, Bridge: &testutil.MockAdapter{}, Notifier: notifier})
	p.Run(context.Background())
	p.Stop()

	if p.Status() != Idle {
		t.Fatalf("failed start should leave the session idle, got %s", p.Status())
	}
	if len(notifier.Errors) == 0 {
		t.Fatal("capture failure should have been notified")
	}
}

func TestStatusTransitions(t *testing.T) {
	src := testutil.NewMockSource(silenceFrames(200))
	src.Interval = 5 * time.Millisecond

	p := New(testOptions(), Deps{Source: src, Bridge: &testutil.MockAdapter{}})
	if p.Status() != Idle {
		t.Fatalf("fresh session should be idle, got %s", p.Status())
	}

	p.Run(context.Background())
	defer p.Stop()

	testutil.WaitForCondition(t, func() bool { return p.Status() == Recording }, time.Second)
	p.Actions() <- Pause
	testutil.WaitForCondition(t, func() bool { return p.Status() == Paused }, time.Second)
	p.Actions() <- Resume
	testutil.WaitForCondition(t, func() bool { return p.Status() == Recording }, time.Second)
	p.Actions() <- Finish
	testutil.WaitForCondition(t, func() bool { return p.Status() == Stopped }, 5*time.Second)
}

func TestSessionIDStable(t *testing.T) {
	p := New(testOptions(), Deps{Source: testutil.NewMockSource(nil), Bridge: &testutil.MockAdapter{}})
	if p.SessionID() == "" {
		t.Fatal("session id should be assigned at construction")
	}
	if p.SessionID() != p.SessionID() {
		t.Fatal("session id must be stable")
	}
}

func TestTranscribeFile(t *testing.T) {
	samples := testutil.Tone(16000, 0.5, 16000) // 1s at transcribe rate
	wav := audio.EncodeWAV(samples, 16000)
	path := filepath.Join(t.TempDir(), "upload.wav")
	if err := os.WriteFile(path, wav, 0644); err != nil {
		t.Fatal(err)
	}

	adapter := &testutil.MockAdapter{}
	cfg := testOptions().Dispatcher
	text, err := TranscribeFile(context.Background(), path, Deps{Bridge: adapter}, cfg)
	if err != nil {
		t.Fatalf("TranscribeFile: %v", err)
	}
	if text != "mock transcription" {
		t.Fatalf("unexpected transcript: %q", text)
	}

	if _, err := TranscribeFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), Deps{Bridge: adapter}, cfg); err == nil {
		t.Fatal("missing file should error")
	}
}
