// Package testutil provides shared fakes and builders for package tests.
package testutil

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/greffier/greffier/internal/capture"
	"github.com/greffier/greffier/internal/config"
	"github.com/greffier/greffier/internal/transcriber"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Transcription.BridgeURL = "http://127.0.0.1:1" // never reachable in tests
	cfg.Notifications.Type = "log"
	cfg.Storage.Enabled = false
	return cfg
}

// Tone returns n samples of a 440Hz sine at the given amplitude, loud enough
// to register as speech for the default detector tuning.
func Tone(n int, amplitude float64, sampleRate int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}
	return samples
}

// Silence returns n zero samples.
func Silence(n int) []float32 {
	return make([]float32, n)
}

// MockSource implements capture.Source, emitting scripted frames with a fixed
// interval between them.
type MockSource struct {
	Frames     []capture.Frame
	Interval   time.Duration
	StartError error

	mu      sync.Mutex
	stopCh  chan struct{}
	running atomic.Bool
}

func NewMockSource(frames []capture.Frame) *MockSource {
	return &MockSource{Frames: frames, Interval: time.Millisecond}
}

// FrameOf wraps samples in a capture.Frame with the raw byte size a real
// f32le capture would have carried.
func FrameOf(samples []float32) capture.Frame {
	return capture.Frame{
		Samples:   samples,
		RawBytes:  len(samples) * 4,
		Timestamp: time.Now(),
	}
}

func (m *MockSource) Start(ctx context.Context) (<-chan capture.Frame, <-chan error, error) {
	if m.StartError != nil {
		return nil, nil, m.StartError
	}

	m.mu.Lock()
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()
	m.running.Store(true)

	frameCh := make(chan capture.Frame, len(m.Frames)+1)
	errCh := make(chan error, 1)

	go func() {
		defer close(frameCh)
		defer close(errCh)
		for _, f := range m.Frames {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case frameCh <- f:
				time.Sleep(m.Interval)
			}
		}
		// Keep the channel open until stopped so the session does not
		// self-terminate after the script runs out.
		select {
		case <-ctx.Done():
		case <-stopCh:
		}
	}()

	return frameCh, errCh, nil
}

func (m *MockSource) Stop() error {
	if !m.running.Load() {
		return nil
	}
	m.running.Store(false)
	m.mu.Lock()
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
	m.mu.Unlock()
	return nil
}

// MockAdapter implements transcriber.BatchAdapter with a scripted response.
type MockAdapter struct {
	AdapterName    string
	TranscribeFunc func(ctx context.Context, wav []byte) (transcriber.Result, error)

	mu    sync.Mutex
	calls int
}

func (m *MockAdapter) Name() string {
	if m.AdapterName == "" {
		return "mock"
	}
	return m.AdapterName
}

func (m *MockAdapter) Transcribe(ctx context.Context, wav []byte) (transcriber.Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, wav)
	}
	return transcriber.Result{Text: "mock transcription"}, nil
}

func (m *MockAdapter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// RecordingNotifier captures notifications for assertions.
type RecordingNotifier struct {
	mu     sync.Mutex
	States []string
	Errors []string
	Advice []string
}

func (n *RecordingNotifier) SessionChanged(state string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.States = append(n.States, state)
}

func (n *RecordingNotifier) Advisory(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Advice = append(n.Advice, msg)
}

func (n *RecordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Errors = append(n.Errors, msg)
}

func (n *RecordingNotifier) LastState() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.States) == 0 {
		return ""
	}
	return n.States[len(n.States)-1]
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Condition not met within %v", timeout)
}
