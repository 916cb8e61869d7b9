// Package capture owns the live audio input. It runs pw-record as a child
// process and delivers raw sample buffers over a bounded channel, decoupling
// hardware cadence from the segmenter downstream.
package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/greffier/greffier/internal/audio"
)

// Frame is one raw buffer as delivered by the capture backend. Samples are
// the decoded 32-bit floats; RawBytes is the size of the wire payload they
// were decoded from (the VAD needs it for its decode-failure fallback).
type Frame struct {
	Samples   []float32
	RawBytes  int
	Timestamp time.Time
}

type Config struct {
	SampleRate        int
	Channels          int
	BufferSize        int
	Device            string
	ChannelBufferSize int
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        48000,
		Channels:          1,
		BufferSize:        19200, // 100ms of f32le mono at 48kHz
		Device:            "",
		ChannelBufferSize: 30,
	}
}

// Source is anything that can deliver capture frames. The pipeline depends on
// this interface so tests can substitute synthetic input for a microphone.
type Source interface {
	Start(ctx context.Context) (<-chan Frame, <-chan error, error)
	Stop() error
}

// Recorder captures from PipeWire via pw-record in f32le format.
type Recorder struct {
	config    Config
	recording atomic.Bool

	mu     sync.Mutex // guards cmd and cancel
	cmd    *exec.Cmd
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func NewRecorder(config Config) *Recorder {
	return &Recorder{config: config}
}

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

func (r *Recorder) Start(ctx context.Context) (<-chan Frame, <-chan error, error) {
	if r.recording.Load() {
		return nil, nil, fmt.Errorf("already recording")
	}

	if err := r.validateConfig(); err != nil {
		return nil, nil, err
	}

	// Failing to acquire the input device is session-fatal and must surface
	// before any recording state is created.
	if err := CheckPipeWireAvailable(ctx); err != nil {
		return nil, nil, fmt.Errorf("audio input unavailable: %w", err)
	}

	captureCtx, cancel := context.WithCancel(ctx)

	frameCh := make(chan Frame, r.config.ChannelBufferSize)
	errCh := make(chan error, 1)

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	r.recording.Store(true)
	r.wg.Add(1)
	go r.captureLoop(captureCtx, frameCh, errCh)

	return frameCh, errCh, nil
}

func (r *Recorder) Stop() error {
	if !r.recording.Load() {
		return nil
	}

	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) captureLoop(ctx context.Context, frameCh chan<- Frame, errCh chan<- error) {
	defer func() {
		close(frameCh)
		close(errCh)
		r.recording.Store(false)

		// Reap the child process.
		r.mu.Lock()
		if r.cmd != nil {
			_ = r.cmd.Wait()
			r.cmd = nil
		}
		r.cancel = nil
		r.mu.Unlock()

		r.wg.Done()
	}()

	args := r.buildPwRecordArgs()
	cmd := exec.CommandContext(ctx, "pw-record", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.emitErr(errCh, fmt.Errorf("create stdout pipe: %w", err))
		r.requestCancel()
		return
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		r.emitErr(errCh, fmt.Errorf("create stderr pipe: %w", err))
		r.requestCancel()
		return
	}

	r.mu.Lock()
	r.cmd = cmd
	r.mu.Unlock()

	if err := cmd.Start(); err != nil {
		r.emitErr(errCh, fmt.Errorf("start pw-record: %w", err))
		r.requestCancel()
		return
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("capture stderr: %s", scanner.Text())
		}
	}()

	buffer := make([]byte, r.config.BufferSize)
	var carry []byte
	var droppedCount int
	lastDropLog := time.Now()

	for {
		n, readErr := stdout.Read(buffer)
		if n > 0 {
			var raw []byte
			raw, carry = alignSamples(carry, buffer[:n])

			if len(raw) > 0 {
				frame := Frame{
					Samples:   audio.DownmixStereo(audio.DecodeF32LE(raw), r.config.Channels),
					RawBytes:  len(raw),
					Timestamp: time.Now(),
				}

				select {
				case frameCh <- frame:
				case <-ctx.Done():
					return
				default:
					// Downstream is not keeping up; drop rather than stall
					// the child process pipe.
					droppedCount++
					if time.Since(lastDropLog) > time.Second {
						log.Printf("capture: dropped %d frames due to backpressure", droppedCount)
						lastDropLog = time.Now()
						droppedCount = 0
					}
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return
			}
			r.emitErr(errCh, fmt.Errorf("read audio: %w", readErr))
			r.requestCancel()
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// alignSamples prepends the remainder carried from the previous read and
// splits off any trailing partial f32 sample. A pipe read can end mid-sample;
// the tail bytes belong to the next frame, not the floor.
func alignSamples(carry, chunk []byte) (raw, rest []byte) {
	if len(carry) > 0 {
		chunk = append(append([]byte(nil), carry...), chunk...)
	}
	tail := len(chunk) % 4
	if tail == 0 {
		return chunk, nil
	}
	return chunk[:len(chunk)-tail], append([]byte(nil), chunk[len(chunk)-tail:]...)
}

func (r *Recorder) requestCancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Recorder) emitErr(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
	log.Printf("capture error: %v", err)
}

func (r *Recorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", "f32",
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", strconv.Itoa(r.config.Channels),
		"-", // stdout
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return args
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(checkCtx, "pw-cli", "info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}

func (r *Recorder) validateConfig() error {
	if r.config.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	}
	if r.config.Channels <= 0 || r.config.Channels > 2 {
		return fmt.Errorf("invalid Channels: %d", r.config.Channels)
	}
	if r.config.BufferSize <= 0 {
		return fmt.Errorf("invalid BufferSize: %d", r.config.BufferSize)
	}
	if r.config.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", r.config.ChannelBufferSize)
	}
	// f32le frames are 4 bytes per sample per channel.
	frameBytes := 4 * r.config.Channels
	if r.config.BufferSize%frameBytes != 0 {
		log.Printf("capture: BufferSize %d not aligned to frame size %d; samples will split across reads and be carried over",
			r.config.BufferSize, frameBytes)
	}
	return nil
}
