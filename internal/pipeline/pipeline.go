// Package pipeline wires capture, segmentation, dispatch and transcript
// assembly into one recording session with an explicit state machine:
//
//	Idle -> Recording <-> Paused -> Stopped
//
// Only the Recording state feeds audio into the segmenter. Paused discards
// incoming frames without stamping activity, so a pause never leaks partial
// speech into a segment. Finish flushes whatever is pending and waits a
// bounded time for in-flight transcriptions before the session is declared
// stopped.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greffier/greffier/internal/audio"
	"github.com/greffier/greffier/internal/capture"
	"github.com/greffier/greffier/internal/notify"
	"github.com/greffier/greffier/internal/segmenter"
	"github.com/greffier/greffier/internal/transcriber"
	"github.com/greffier/greffier/internal/transcript"
	"github.com/greffier/greffier/internal/vad"
)

type Status string
type Action string

const (
	Idle      Status = "idle"
	Recording Status = "recording"
	Paused    Status = "paused"
	Stopped   Status = "stopped"
)

const (
	Pause  Action = "pause"
	Resume Action = "resume"
	Finish Action = "finish"
)

type Pipeline interface {
	Run(ctx context.Context)
	Stop()
	Status() Status
	Actions() chan<- Action
	SessionID() string
	Transcript() string
	Summarize(ctx context.Context) (string, error)
}

// Deps are the external collaborators of a session. Source and at least one
// of Bridge/Local are required; the rest may be nil.
type Deps struct {
	Source     capture.Source
	Bridge     transcriber.BatchAdapter
	Local      transcriber.BatchAdapter
	Sink       transcriber.Sink
	Notifier   notify.Notifier
	Summarizer transcript.Summarizer
}

// Options tune one session. Zero values fall back to package defaults.
type Options struct {
	VAD        vad.Config
	Segmenter  segmenter.Config
	Dispatcher transcriber.DispatcherConfig
	Assembler  transcript.Config
	Timeout    time.Duration // hard cap on session duration
	DrainWait  time.Duration // how long Finish waits for in-flight segments
}

type pipeline struct {
	mu     sync.RWMutex
	status Status

	opts Options
	deps Deps

	sessionID  string
	segmenter  *segmenter.Segmenter
	dispatcher *transcriber.Dispatcher
	assembler  *transcript.Assembler

	actionCh chan Action
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

func New(opts Options, deps Deps) Pipeline {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 4 * time.Hour
	}
	if opts.DrainWait <= 0 {
		opts.DrainWait = 30 * time.Second
	}

	sessionID := opts.Dispatcher.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
		opts.Dispatcher.SessionID = sessionID
	}

	p := &pipeline{
		status:    Idle,
		opts:      opts,
		deps:      deps,
		sessionID: sessionID,
		actionCh:  make(chan Action, 4),
	}

	detector := vad.New(opts.VAD)
	p.segmenter = segmenter.New(opts.Segmenter, detector)
	p.assembler = transcript.NewAssembler(opts.Assembler, deps.Summarizer)
	p.dispatcher = transcriber.NewDispatcher(opts.Dispatcher, deps.Bridge, deps.Local, deps.Sink, deps.Notifier,
		func(seg audio.Segment, res transcriber.Result) {
			p.assembler.Append(res.Text)
		})

	return p
}

func (p *pipeline) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *pipeline) setStatus(s Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

func (p *pipeline) Actions() chan<- Action {
	return p.actionCh
}

func (p *pipeline) SessionID() string {
	return p.sessionID
}

func (p *pipeline) Transcript() string {
	return p.assembler.Current()
}

func (p *pipeline) Summarize(ctx context.Context) (string, error) {
	if p.deps.Summarizer == nil {
		return "", fmt.Errorf("summarization not configured")
	}
	return p.assembler.SummarizeSince(ctx)
}

func (p *pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *pipeline) Run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(runCtx)
}

func (p *pipeline) run(ctx context.Context) {
	defer p.wg.Done()

	log.Printf("Pipeline: starting session %s", p.sessionID)

	frameCh, errCh, err := p.deps.Source.Start(ctx)
	if err != nil {
		log.Printf("Pipeline: capture start failed: %v", err)
		p.deps.Notifier.Error(fmt.Sprintf("audio capture failed: %v", err))
		p.setStatus(Idle)
		return
	}
	defer p.deps.Source.Stop()

	p.dispatcher.Run()
	p.setStatus(Recording)
	p.deps.Notifier.SessionChanged("recording")

	for {
		select {
		case frame, ok := <-frameCh:
			if !ok {
				log.Printf("Pipeline: capture stream ended")
				p.finish()
				return
			}
			if p.Status() != Recording {
				continue
			}
			if seg := p.segmenter.Feed(frame.Samples, frame.RawBytes); seg != nil {
				p.dispatcher.Enqueue(*seg)
			}

		case err := <-errCh:
			if err != nil {
				log.Printf("Pipeline: capture error: %v", err)
				p.deps.Notifier.Error(fmt.Sprintf("capture error: %v", err))
				p.finish()
				return
			}

		case action := <-p.actionCh:
			switch action {
			case Pause:
				if p.Status() == Recording {
					p.setStatus(Paused)
					p.deps.Notifier.SessionChanged("paused")
					log.Printf("Pipeline: session %s paused", p.sessionID)
				}
			case Resume:
				if p.Status() == Paused {
					p.setStatus(Recording)
					p.deps.Notifier.SessionChanged("recording")
					log.Printf("Pipeline: session %s resumed", p.sessionID)
				}
			case Finish:
				log.Printf("Pipeline: session %s finishing", p.sessionID)
				p.finish()
				return
			default:
				log.Printf("Pipeline: unknown action: %v", action)
			}

		case <-ctx.Done():
			log.Printf("Pipeline: context cancelled, finishing session %s", p.sessionID)
			p.finish()
			return
		}
	}
}

// finish stops capture, flushes the pending segment and waits a bounded time
// for the dispatch queue to drain before marking the session stopped.
func (p *pipeline) finish() {
	p.deps.Source.Stop()

	if final := p.segmenter.FlushFinal(); final != nil {
		p.dispatcher.Enqueue(*final)
	}

	if !p.dispatcher.Drain(p.opts.DrainWait) {
		log.Printf("Pipeline: %d segment(s) still pending after drain window", p.dispatcher.Pending())
		p.deps.Notifier.Advisory("some audio segments were not transcribed before shutdown")
	}
	p.dispatcher.Stop()

	p.setStatus(Stopped)
	p.deps.Notifier.SessionChanged("stopped")
	log.Printf("Pipeline: session %s stopped", p.sessionID)
}
