package transcriber

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/greffier/greffier/internal/audio"
	"github.com/greffier/greffier/internal/notify"
)

// Sink receives finalized audio and accepted transcripts for durable storage.
// Writes are fire-and-forget: a sink error is logged, never propagated into
// the pipeline.
type Sink interface {
	StoreAudioSegment(ctx context.Context, wav []byte, seg audio.Segment, sessionID, clientID string) (string, error)
	StoreTranscript(ctx context.Context, segmentID, text string, spans []Segment, sessionID, clientID string) (string, error)
}

// Prober is an adapter with a liveness check (the bridge).
type Prober interface {
	Available(ctx context.Context) bool
}

// DispatcherConfig tunes dispatch policy for one session context.
type DispatcherConfig struct {
	Tier            Tier
	MinSegmentBytes int
	QueueDepth      int
	Guard           GuardConfig
	SessionID       string
	ClientID        string
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Tier:            TierStandard,
		MinSegmentBytes: 8000, // ~250ms of 16kHz PCM16: too short to carry speech
		QueueDepth:      16,
		Guard:           DefaultGuardConfig(),
	}
}

// Dispatcher owns the per-session FIFO dispatch queue. Segments are enqueued
// by the pipeline and drained one at a time by a single pump goroutine, so
// results reach the assembler in dispatch order even when a later segment's
// backend call would have finished first.
type Dispatcher struct {
	cfg      DispatcherConfig
	bridge   BatchAdapter // may be nil
	local    BatchAdapter // may be nil
	sink     Sink         // may be nil
	notifier notify.Notifier
	onResult func(seg audio.Segment, res Result)

	queue   chan audio.Segment
	pending atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher wires a dispatcher. onResult is invoked from the pump
// goroutine, strictly in enqueue order, only for accepted text.
func NewDispatcher(cfg DispatcherConfig, bridge, local BatchAdapter, sink Sink, notifier notify.Notifier, onResult func(audio.Segment, Result)) *Dispatcher {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultDispatcherConfig().QueueDepth
	}
	if cfg.MinSegmentBytes <= 0 {
		cfg.MinSegmentBytes = DefaultDispatcherConfig().MinSegmentBytes
	}
	if cfg.Tier == "" {
		cfg.Tier = TierStandard
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Dispatcher{
		cfg:      cfg,
		bridge:   bridge,
		local:    local,
		sink:     sink,
		notifier: notifier,
		onResult: onResult,
		queue:    make(chan audio.Segment, cfg.QueueDepth),
	}
}

// Run starts the pump. It returns immediately. The pump's lifetime is
// deliberately independent of any session context: segments enqueued while a
// session is shutting down (the final forced flush in particular) must still
// be processed, so the pump exits only via Stop once the queue has been
// observed empty.
func (d *Dispatcher) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	go d.pump(ctx)
}

// Stop cancels the pump and waits for it to exit. In-flight backend calls are
// allowed to finish so FIFO append ordering holds to the end.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// Enqueue adds a segment without ever blocking the capture path. When the
// queue is full the oldest entry is dropped and logged; transcription latency
// already exceeds capture cadence badly at that point, and stalling capture
// would lose newer audio instead.
func (d *Dispatcher) Enqueue(seg audio.Segment) {
	d.pending.Add(1)
	for {
		select {
		case d.queue <- seg:
			return
		default:
		}
		select {
		case dropped := <-d.queue:
			d.pending.Add(-1)
			log.Printf("dispatcher: queue full, dropped %0.1fs segment", dropped.Duration())
			d.notifier.Advisory("Transcription backlog: dropped oldest pending segment")
		default:
		}
	}
}

// Pending reports queued plus in-flight segments.
func (d *Dispatcher) Pending() int {
	return int(d.pending.Load())
}

// Drain waits until the queue is empty and no segment is in flight, up to
// maxWait. Returns false when the wait was abandoned (best-effort stop).
func (d *Dispatcher) Drain(maxWait time.Duration) bool {
	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for d.pending.Load() > 0 {
		if time.Now().After(deadline) {
			log.Printf("dispatcher: drain abandoned with %d segments pending", d.pending.Load())
			return false
		}
		<-ticker.C
	}
	return true
}

func (d *Dispatcher) pump(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case seg := <-d.queue:
			d.process(ctx, seg)
			d.pending.Add(-1)
		case <-ctx.Done():
			// Drain whatever is already queued before exiting; enqueued
			// segments were captured and must not vanish silently.
			for {
				select {
				case seg := <-d.queue:
					d.process(context.Background(), seg)
					d.pending.Add(-1)
				default:
					return
				}
			}
		}
	}
}

// process handles one segment end to end. Every failure is per-segment: it
// logs, optionally notifies, and the pump moves on.
func (d *Dispatcher) process(ctx context.Context, seg audio.Segment) {
	wav := audio.EncodeWAV(seg.Samples, seg.SampleRate)

	if len(seg.Samples) > 0 && len(wav) <= 44 {
		log.Printf("dispatcher: %v", &EncodingError{Samples: len(seg.Samples)})
		return
	}

	if len(wav) < d.cfg.MinSegmentBytes {
		log.Printf("dispatcher: %v: %d bytes (minimum %d)", ErrSegmentTooSmall, len(wav), d.cfg.MinSegmentBytes)
		return
	}

	result, err := d.transcribe(ctx, wav)
	if err != nil {
		switch {
		case errors.Is(err, ErrBackendUnavailable):
			log.Printf("dispatcher: %v", err)
			d.notifier.Advisory("Transcription unavailable: no backend for requested tier")
		default:
			log.Printf("dispatcher: segment failed: %v", err)
			d.notifier.Advisory("Transcription failed for one segment")
		}
		return
	}

	if err := CheckRepetition(result.Text, d.cfg.Guard); err != nil {
		log.Printf("dispatcher: %v", err)
		d.notifier.Advisory("Discarded a likely hallucinated transcription")
		return
	}

	if result.Text == "" {
		return
	}

	d.persist(ctx, wav, seg, result)

	if d.onResult != nil {
		d.onResult(seg, result)
	}
}

// transcribe applies the backend selection policy: bridge when reachable,
// local fallback when the tier allows it.
func (d *Dispatcher) transcribe(ctx context.Context, wav []byte) (Result, error) {
	bridgeUp := false
	if d.bridge != nil {
		if prober, ok := d.bridge.(Prober); ok {
			bridgeUp = prober.Available(ctx)
		} else {
			bridgeUp = true
		}
	}

	if bridgeUp {
		result, err := d.bridge.Transcribe(ctx, wav)
		if err == nil {
			return result, nil
		}
		log.Printf("dispatcher: bridge call failed, considering fallback: %v", err)
		if d.cfg.Tier == TierHigh || d.local == nil {
			if d.cfg.Tier == TierHigh {
				return Result{}, fmt.Errorf("%w: bridge failed and tier %q has no local fallback", ErrBackendUnavailable, d.cfg.Tier)
			}
			return Result{}, err
		}
		return d.local.Transcribe(ctx, wav)
	}

	if d.cfg.Tier == TierHigh {
		return Result{}, fmt.Errorf("%w: tier %q requires the bridge", ErrBackendUnavailable, d.cfg.Tier)
	}
	if d.local == nil {
		return Result{}, ErrBackendUnavailable
	}
	return d.local.Transcribe(ctx, wav)
}

// persist writes audio and transcript to the sink. Failures are logged and
// swallowed: durability is best-effort and never corrupts in-memory state.
func (d *Dispatcher) persist(ctx context.Context, wav []byte, seg audio.Segment, result Result) {
	if d.sink == nil {
		return
	}
	segmentID, err := d.sink.StoreAudioSegment(ctx, wav, seg, d.cfg.SessionID, d.cfg.ClientID)
	if err != nil {
		log.Printf("dispatcher: store audio failed: %v", err)
		return
	}
	if _, err := d.sink.StoreTranscript(ctx, segmentID, result.Text, result.Segments, d.cfg.SessionID, d.cfg.ClientID); err != nil {
		log.Printf("dispatcher: store transcript failed: %v", err)
	}
}
