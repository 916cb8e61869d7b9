package transcriber

import (
	"errors"
	"fmt"
)

// ErrSegmentTooSmall marks a segment below the minimum dispatch size. It is
// a silent skip, never surfaced to the user.
var ErrSegmentTooSmall = errors.New("segment below minimum size")

// ErrBackendUnavailable means neither the bridge nor the local fallback could
// service the requested tier. Recoverable: the pump moves on to the next
// segment.
var ErrBackendUnavailable = errors.New("no transcription backend available for requested tier")

// HallucinationError reports that the repetition guard discarded a segment's
// text wholesale. Non-fatal; carries the matched pattern for the advisory.
type HallucinationError struct {
	Pattern string
	Repeats int
}

func (e *HallucinationError) Error() string {
	return fmt.Sprintf("hallucination guard: %q repeated %d times", e.Pattern, e.Repeats)
}

func IsHallucination(err error) bool {
	var h *HallucinationError
	return errors.As(err, &h)
}

// TranscriptionError wraps a backend failure (network error, non-2xx,
// malformed payload) for one segment. The session keeps running.
type TranscriptionError struct {
	Backend string
	Err     error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("%s transcription failed: %v", e.Backend, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// EncodingError signals that WAV encoding produced no payload for a non-empty
// segment. This is an invariant violation, not an expected runtime failure.
type EncodingError struct {
	Samples int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("wav encoding yielded no data for %d samples", e.Samples)
}
