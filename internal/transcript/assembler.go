// Package transcript maintains the running transcript of one capture session
// and the summarization watermark over it.
package transcript

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
)

// Summarizer condenses transcript text. Implemented by the LLM bridge
// adapter; injected so the assembler stays testable offline.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Config tunes the assembler.
type Config struct {
	// MinSummarizeChars guards against summarizing trivially small
	// increments since the last watermark.
	MinSummarizeChars int
}

func DefaultConfig() Config {
	return Config{MinSummarizeChars: 200}
}

// Assembler owns the running transcript. Accepted text blocks are joined
// with a blank line; the watermark tracks how far summarization has read.
// Safe for concurrent use: the dispatcher appends while CLI queries read.
type Assembler struct {
	cfg        Config
	summarizer Summarizer

	mu        sync.Mutex
	text      strings.Builder
	watermark int
}

func NewAssembler(cfg Config, summarizer Summarizer) *Assembler {
	if cfg.MinSummarizeChars <= 0 {
		cfg.MinSummarizeChars = DefaultConfig().MinSummarizeChars
	}
	return &Assembler{cfg: cfg, summarizer: summarizer}
}

// Append joins accepted text onto the transcript with a blank-line separator.
// Empty input is a no-op.
func (a *Assembler) Append(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.text.Len() > 0 {
		a.text.WriteString("\n\n")
	}
	a.text.WriteString(text)
}

// Current returns the transcript assembled so far.
func (a *Assembler) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text.String()
}

// Len returns the transcript length in bytes.
func (a *Assembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text.Len()
}

// ErrIncrementTooSmall indicates there is not enough new text since the last
// watermark to be worth a summarization call.
var ErrIncrementTooSmall = fmt.Errorf("not enough new transcript to summarize")

// SummarizeSince hands the text since the last watermark to the summarizer
// and, on success, advances the watermark to the current transcript length.
// The watermark does not move on failure, so the increment is retried whole
// next time.
func (a *Assembler) SummarizeSince(ctx context.Context) (string, error) {
	if a.summarizer == nil {
		return "", fmt.Errorf("no summarizer configured")
	}

	a.mu.Lock()
	full := a.text.String()
	mark := a.watermark
	a.mu.Unlock()

	increment := full[mark:]
	if len(strings.TrimSpace(increment)) < a.cfg.MinSummarizeChars {
		return "", ErrIncrementTooSmall
	}

	summary, err := a.summarizer.Summarize(ctx, increment)
	if err != nil {
		return "", fmt.Errorf("summarize transcript: %w", err)
	}

	a.mu.Lock()
	// The transcript may have grown while the call was in flight; only the
	// part that was actually summarized is marked done.
	if len(full) > a.watermark {
		a.watermark = len(full)
	}
	a.mu.Unlock()

	log.Printf("transcript: summarized %d chars, watermark now %d", len(increment), len(full))
	return summary, nil
}

// Watermark returns the summarization offset, for status reporting.
func (a *Assembler) Watermark() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.watermark
}

// Reset clears transcript and watermark. Called on context change or
// explicit user action.
func (a *Assembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.text.Reset()
	a.watermark = 0
}
