package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/greffier/greffier/internal/audio"
	"github.com/greffier/greffier/internal/transcriber"
)

// TranscribeFile runs one uploaded WAV file through the same dispatch policy
// as live segments and returns the accepted transcript text. The file is
// treated as a single segment regardless of length.
func TranscribeFile(ctx context.Context, path string, deps Deps, cfg transcriber.DispatcherConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	samples, sampleRate, err := audio.DecodeWAV(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	seg := audio.Segment{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   1,
		Origin:     audio.OriginUploaded,
		SourceFile: filepath.Base(path),
	}

	var texts []string
	done := make(chan struct{})

	d := transcriber.NewDispatcher(cfg, deps.Bridge, deps.Local, deps.Sink, deps.Notifier,
		func(_ audio.Segment, res transcriber.Result) {
			texts = append(texts, res.Text)
			close(done)
		})

	d.Run()
	defer d.Stop()
	d.Enqueue(seg)

	// One segment in, one result (or discard) out. Drain covers the discard
	// path where onResult never fires.
	waited := d.Drain(10 * time.Minute)
	select {
	case <-done:
	default:
		if !waited {
			return "", fmt.Errorf("transcription did not complete in time")
		}
	}

	return strings.Join(texts, "\n"), nil
}
