package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeSummarizer struct {
	calls []string
	reply string
	err   error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestAppendJoinsWithBlankLine(t *testing.T) {
	a := NewAssembler(DefaultConfig(), nil)

	a.Append("premier bloc")
	a.Append("deuxième bloc")
	a.Append("")
	a.Append("   ")

	want := "premier bloc\n\ndeuxième bloc"
	if got := a.Current(); got != want {
		t.Errorf("Current() = %q, want %q", got, want)
	}
}

func TestSummarizeSinceAdvancesWatermark(t *testing.T) {
	sum := &fakeSummarizer{reply: "résumé"}
	a := NewAssembler(Config{MinSummarizeChars: 10}, sum)

	a.Append(strings.Repeat("parole ", 20))

	got, err := a.SummarizeSince(context.Background())
	if err != nil {
		t.Fatalf("SummarizeSince: %v", err)
	}
	if got != "résumé" {
		t.Errorf("summary = %q", got)
	}
	if a.Watermark() != a.Len() {
		t.Errorf("watermark = %d, want %d", a.Watermark(), a.Len())
	}

	// Nothing new: next call is guarded off.
	if _, err := a.SummarizeSince(context.Background()); !errors.Is(err, ErrIncrementTooSmall) {
		t.Errorf("expected ErrIncrementTooSmall, got %v", err)
	}
}

func TestSummarizeSinceOnlySendsIncrement(t *testing.T) {
	sum := &fakeSummarizer{reply: "ok"}
	a := NewAssembler(Config{MinSummarizeChars: 5}, sum)

	a.Append("ancienne partie du transcript")
	if _, err := a.SummarizeSince(context.Background()); err != nil {
		t.Fatal(err)
	}
	a.Append("nouvelle partie")
	if _, err := a.SummarizeSince(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(sum.calls) != 2 {
		t.Fatalf("summarizer called %d times, want 2", len(sum.calls))
	}
	if strings.Contains(sum.calls[1], "ancienne") {
		t.Errorf("second call resent already-summarized text: %q", sum.calls[1])
	}
	if !strings.Contains(sum.calls[1], "nouvelle partie") {
		t.Errorf("second call missing the increment: %q", sum.calls[1])
	}
}

func TestSummarizeFailureKeepsWatermark(t *testing.T) {
	sum := &fakeSummarizer{err: fmt.Errorf("bridge down")}
	a := NewAssembler(Config{MinSummarizeChars: 5}, sum)

	a.Append("du texte à résumer plus tard")
	if _, err := a.SummarizeSince(context.Background()); err == nil {
		t.Fatal("expected error from failing summarizer")
	}
	if a.Watermark() != 0 {
		t.Errorf("watermark moved on failure: %d", a.Watermark())
	}
}

func TestReset(t *testing.T) {
	a := NewAssembler(DefaultConfig(), nil)
	a.Append("quelque chose")
	a.Reset()

	if a.Current() != "" || a.Len() != 0 || a.Watermark() != 0 {
		t.Error("reset must clear transcript and watermark")
	}
}
