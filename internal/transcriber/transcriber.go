// Package transcriber turns finalized audio segments into text. A single
// dispatcher pump drains a FIFO queue, picks a backend (local bridge service
// or the fallback whisper-cli), filters hallucinated output and hands
// accepted text downstream in dispatch order.
package transcriber

import "context"

// Segment is a timestamped span of recognized text, offsets in seconds
// relative to the owning audio segment.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Result is one backend's answer for one audio segment.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Duration float64   `json:"duration"`
}

// BatchAdapter transcribes one encoded WAV payload.
type BatchAdapter interface {
	Name() string
	Transcribe(ctx context.Context, wav []byte) (Result, error)
}

// Tier selects transcription quality. High-tier models only run on the
// bridge; the standard tier can fall back to the local whisper-cli.
type Tier string

const (
	TierStandard Tier = "standard"
	TierHigh     Tier = "high"
)
