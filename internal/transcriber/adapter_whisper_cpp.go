package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// WhisperCppAdapter runs whisper-cli against a local model file. This is the
// standard-tier fallback when the bridge is down; it never serves the high
// tier.
type WhisperCppAdapter struct {
	modelPath string
	language  string
	threads   int
}

func NewWhisperCppAdapter(modelPath, language string, threads int) *WhisperCppAdapter {
	return &WhisperCppAdapter{
		modelPath: modelPath,
		language:  language,
		threads:   threads,
	}
}

func (a *WhisperCppAdapter) Name() string { return "whisper-cpp" }

func (a *WhisperCppAdapter) Transcribe(ctx context.Context, wav []byte) (Result, error) {
	if len(wav) == 0 {
		return Result{}, nil
	}

	if _, err := os.Stat(a.modelPath); os.IsNotExist(err) {
		return Result{}, &TranscriptionError{Backend: a.Name(), Err: fmt.Errorf("model file not found: %s", a.modelPath)}
	}

	whisperPath, err := exec.LookPath("whisper-cli")
	if err != nil {
		return Result{}, &TranscriptionError{Backend: a.Name(), Err: fmt.Errorf("whisper-cli not found: install whisper.cpp first")}
	}

	tmpFile := filepath.Join(os.TempDir(), fmt.Sprintf("greffier-%d.wav", time.Now().UnixNano()))
	if err := os.WriteFile(tmpFile, wav, 0600); err != nil {
		return Result{}, &TranscriptionError{Backend: a.Name(), Err: fmt.Errorf("write temp file: %w", err)}
	}
	defer os.Remove(tmpFile)

	lang := a.language
	if lang == "" {
		lang = "auto"
	}

	args := []string{
		"-m", a.modelPath,
		"-l", lang,
		"-nt", // no timestamps
		"-np", // no progress
		"-f", tmpFile,
	}
	if a.threads > 0 {
		args = append(args, "-t", fmt.Sprintf("%d", a.threads))
	}

	cmd := exec.CommandContext(ctx, whisperPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Printf("whisper-cpp: command failed after %v: %v\nstderr: %s", elapsed, err, stderr.String())
		return Result{}, &TranscriptionError{Backend: a.Name(), Err: fmt.Errorf("whisper-cli failed: %w", err)}
	}

	text := strings.TrimSpace(stdout.String())
	log.Printf("whisper-cpp: transcribed %d bytes in %v: %q", len(wav), elapsed, text)

	// whisper-cli with -nt emits plain text only; synthesize a single span
	// covering the whole segment so downstream sees a uniform shape.
	duration := wavDurationSeconds(wav)
	result := Result{Text: text, Duration: duration}
	if text != "" {
		result.Segments = []Segment{{Start: 0, End: duration, Text: text}}
	}
	return result, nil
}

// wavDurationSeconds reads the data-chunk length of a 16kHz mono PCM16
// container produced by audio.EncodeWAV.
func wavDurationSeconds(wav []byte) float64 {
	if len(wav) < 44 {
		return 0
	}
	dataBytes := len(wav) - 44
	return float64(dataBytes) / 2.0 / 16000.0
}
