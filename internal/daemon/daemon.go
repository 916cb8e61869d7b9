// Package daemon runs the long-lived process: it owns the control socket,
// the configuration manager and at most one recording session at a time.
package daemon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/greffier/greffier/internal/bus"
	"github.com/greffier/greffier/internal/capture"
	"github.com/greffier/greffier/internal/config"
	"github.com/greffier/greffier/internal/llm"
	"github.com/greffier/greffier/internal/notify"
	"github.com/greffier/greffier/internal/pipeline"
	"github.com/greffier/greffier/internal/store"
	"github.com/greffier/greffier/internal/transcriber"
	"github.com/greffier/greffier/internal/transcript"
)

type Daemon struct {
	mu sync.Mutex

	configMgr *config.Manager
	store     *store.Store // nil when storage is disabled

	ctx    context.Context
	cancel context.CancelFunc

	session pipeline.Pipeline
}

func New(configMgr *config.Manager) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		configMgr: configMgr,
		ctx:       ctx,
		cancel:    cancel,
	}

	cfg := configMgr.GetConfig()
	if cfg.Storage.Enabled {
		path := cfg.Storage.Path
		if path == "" {
			var err error
			path, err = store.DefaultPath()
			if err != nil {
				cancel()
				return nil, err
			}
		}
		s, err := store.Open(path)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("open storage: %w", err)
		}
		d.store = s
	}

	return d, nil
}

func (d *Daemon) notifier() notify.Notifier {
	cfg := d.configMgr.GetConfig()
	return notify.ForType(cfg.Notifications.Type, cfg.Notifications.Enabled)
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := d.configMgr.StartWatching(d.ctx); err != nil {
		log.Printf("Daemon: config watching unavailable: %v", err)
	}
	defer d.configMgr.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully", sig)
		d.cancel()
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Shutdown requested")
				d.shutdown()
				return nil
			}
			log.Printf("Accept error: %v", err)
			d.shutdown()
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

// shutdown finishes the running session so pending audio gets flushed before
// the process exits.
func (d *Daemon) shutdown() {
	d.mu.Lock()
	session := d.session
	d.session = nil
	d.mu.Unlock()

	if session != nil && session.Status() != pipeline.Stopped {
		session.Actions() <- pipeline.Finish
		session.Stop()
	}
	if d.store != nil {
		d.store.Close()
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case bus.CmdStart:
		if err := d.startSession(); err != nil {
			fmt.Fprintf(c, "ERR %v\n", err)
			return
		}
		fmt.Fprintf(c, "OK session=%s\n", d.currentSessionID())

	case bus.CmdPause:
		if err := d.forward(pipeline.Pause, pipeline.Recording); err != nil {
			fmt.Fprintf(c, "ERR %v\n", err)
			return
		}
		fmt.Fprint(c, "OK paused\n")

	case bus.CmdResume:
		if err := d.forward(pipeline.Resume, pipeline.Paused); err != nil {
			fmt.Fprintf(c, "ERR %v\n", err)
			return
		}
		fmt.Fprint(c, "OK recording\n")

	case bus.CmdFinish:
		if err := d.finishSession(); err != nil {
			fmt.Fprintf(c, "ERR %v\n", err)
			return
		}
		fmt.Fprint(c, "OK finished\n")

	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS status=%s session=%s\n", d.status(), d.currentSessionID())

	case bus.CmdTranscript:
		fmt.Fprintf(c, "TRANSCRIPT %s\n", strconv.Quote(d.transcript()))

	case bus.CmdSummarize:
		summary, err := d.summarize()
		if err != nil {
			fmt.Fprintf(c, "ERR %v\n", err)
			return
		}
		fmt.Fprintf(c, "SUMMARY %s\n", strconv.Quote(summary))

	case bus.CmdProto:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)

	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()

	default:
		log.Printf("Unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

func (d *Daemon) status() pipeline.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return pipeline.Idle
	}
	return d.session.Status()
}

func (d *Daemon) currentSessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return ""
	}
	return d.session.SessionID()
}

func (d *Daemon) transcript() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return ""
	}
	return d.session.Transcript()
}

func (d *Daemon) summarize() (string, error) {
	d.mu.Lock()
	session := d.session
	d.mu.Unlock()
	if session == nil {
		return "", fmt.Errorf("no session")
	}

	ctx, cancel := context.WithTimeout(d.ctx, 2*time.Minute)
	defer cancel()
	return session.Summarize(ctx)
}

func (d *Daemon) startSession() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		switch d.session.Status() {
		case pipeline.Recording, pipeline.Paused:
			return fmt.Errorf("session already active")
		}
		// Previous session finished; its state is released on replacement.
		d.session.Stop()
	}

	cfg := d.configMgr.GetConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	session, err := d.buildSession(cfg)
	if err != nil {
		return err
	}

	session.Run(d.ctx)
	d.session = session
	return nil
}

func (d *Daemon) buildSession(cfg *config.Config) (pipeline.Pipeline, error) {
	deps := pipeline.Deps{
		Source:   capture.NewRecorder(cfg.ToCaptureConfig()),
		Notifier: d.notifier(),
	}

	if cfg.Transcription.BridgeURL != "" {
		deps.Bridge = transcriber.NewBridgeAdapter(cfg.ToBridgeConfig())
	}
	if cfg.Transcription.LocalModel != "" {
		deps.Local = transcriber.NewWhisperCppAdapter(
			cfg.Transcription.LocalModel, cfg.Transcription.Language, cfg.Transcription.LocalThreads)
	}
	if d.store != nil {
		deps.Sink = d.store
	}
	if cfg.Summary.Enabled {
		summarizer, err := llm.NewAdapter(cfg.ToLLMConfig())
		if err != nil {
			return nil, fmt.Errorf("summarizer setup: %w", err)
		}
		deps.Summarizer = summarizer
	}

	hostname, _ := os.Hostname()
	opts := pipeline.Options{
		VAD:        cfg.ToVADConfig(),
		Segmenter:  cfg.ToSegmenterConfig(),
		Dispatcher: cfg.ToDispatcherConfig("", hostname),
		Assembler: transcript.Config{
			MinSummarizeChars: cfg.Summary.MinIncrementChars,
		},
		Timeout: cfg.SessionTimeout(),
	}

	return pipeline.New(opts, deps), nil
}

func (d *Daemon) forward(action pipeline.Action, required pipeline.Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return fmt.Errorf("no session")
	}
	if d.session.Status() != required {
		return fmt.Errorf("session is %s", d.session.Status())
	}
	d.session.Actions() <- action
	return nil
}

func (d *Daemon) finishSession() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return fmt.Errorf("no session")
	}
	switch d.session.Status() {
	case pipeline.Recording, pipeline.Paused:
		d.session.Actions() <- pipeline.Finish
		return nil
	default:
		return fmt.Errorf("session is %s", d.session.Status())
	}
}
