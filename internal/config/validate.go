package config

import (
	"fmt"
	"net/url"

	"github.com/greffier/greffier/internal/audio"
)

func (c *Config) Validate() error {
	if c.Capture.SampleRate <= 0 {
		return fmt.Errorf("invalid capture.sample_rate: %d", c.Capture.SampleRate)
	}
	if c.Capture.Channels <= 0 {
		return fmt.Errorf("invalid capture.channels: %d", c.Capture.Channels)
	}
	if c.Capture.BufferSize <= 0 {
		return fmt.Errorf("invalid capture.buffer_size: %d", c.Capture.BufferSize)
	}
	if c.Capture.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid capture.channel_buffer_size: %d", c.Capture.ChannelBufferSize)
	}
	if c.Capture.Timeout <= 0 {
		return fmt.Errorf("invalid capture.timeout: %v", c.Capture.Timeout)
	}

	if c.Detection.MinThreshold <= 0 {
		return fmt.Errorf("invalid detection.min_threshold: %v", c.Detection.MinThreshold)
	}
	if c.Detection.ThresholdRatio <= 0 || c.Detection.ThresholdRatio >= 1 {
		return fmt.Errorf("invalid detection.threshold_ratio: %v (must be between 0 and 1)", c.Detection.ThresholdRatio)
	}
	if c.Detection.WindowSize <= 0 {
		return fmt.Errorf("invalid detection.window_size: %d", c.Detection.WindowSize)
	}
	if c.Detection.SilenceDebounce <= 0 {
		return fmt.Errorf("invalid detection.silence_debounce: %v", c.Detection.SilenceDebounce)
	}
	if c.Detection.MaxPendingBuffers <= 0 {
		return fmt.Errorf("invalid detection.max_pending_buffers: %d", c.Detection.MaxPendingBuffers)
	}

	if c.Transcription.BridgeURL == "" && c.Transcription.LocalModel == "" {
		return fmt.Errorf("no transcription backend configured: set transcription.bridge_url or transcription.local_model")
	}
	if c.Transcription.BridgeURL != "" {
		if _, err := url.ParseRequestURI(c.Transcription.BridgeURL); err != nil {
			return fmt.Errorf("invalid transcription.bridge_url: %s", c.Transcription.BridgeURL)
		}
	}
	validTiers := map[string]bool{"standard": true, "high": true}
	if !validTiers[c.Transcription.Tier] {
		return fmt.Errorf("invalid transcription.tier: %s (must be standard or high)", c.Transcription.Tier)
	}
	if c.Transcription.Tier == "high" && c.Transcription.BridgeURL == "" {
		return fmt.Errorf("transcription.tier = high requires transcription.bridge_url")
	}
	if c.Transcription.Language != "" && !isValidLanguageCode(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use empty string for auto-detect or ISO-639-1 codes like 'en', 'es', 'fr')", c.Transcription.Language)
	}
	if c.Transcription.Timeout <= 0 {
		return fmt.Errorf("invalid transcription.timeout: %v", c.Transcription.Timeout)
	}
	if c.Transcription.MinSegmentBytes < 0 {
		return fmt.Errorf("invalid transcription.min_segment_bytes: %d", c.Transcription.MinSegmentBytes)
	}
	// A forced flush must encode to more than min_segment_bytes, or continuous
	// speech would be segmented and then skipped wholesale.
	if flush := c.forceFlushWAVBytes(); flush <= c.Transcription.MinSegmentBytes {
		return fmt.Errorf("detection.max_pending_buffers too small: a forced flush encodes to %d bytes, at or below transcription.min_segment_bytes (%d)",
			flush, c.Transcription.MinSegmentBytes)
	}
	if c.Transcription.QueueDepth <= 0 {
		return fmt.Errorf("invalid transcription.queue_depth: %d", c.Transcription.QueueDepth)
	}
	if c.Transcription.WordRepeats < 2 {
		return fmt.Errorf("invalid transcription.word_repeats: %d (must be at least 2)", c.Transcription.WordRepeats)
	}
	if c.Transcription.PhraseRepeats < 2 {
		return fmt.Errorf("invalid transcription.phrase_repeats: %d (must be at least 2)", c.Transcription.PhraseRepeats)
	}

	if c.Summary.Enabled {
		if c.Summary.BridgeURL == "" {
			return fmt.Errorf("summary.bridge_url required when summary.enabled = true")
		}
		if _, err := url.ParseRequestURI(c.Summary.BridgeURL); err != nil {
			return fmt.Errorf("invalid summary.bridge_url: %s", c.Summary.BridgeURL)
		}
		validTemplates := map[string]bool{"session-notes": true, "brief": true}
		if !validTemplates[c.Summary.Template] {
			return fmt.Errorf("invalid summary.template: %s (must be session-notes or brief)", c.Summary.Template)
		}
		if c.Summary.MinIncrementChars < 0 {
			return fmt.Errorf("invalid summary.min_increment_chars: %d", c.Summary.MinIncrementChars)
		}
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}

// forceFlushWAVBytes estimates the encoded size of a force-flushed segment:
// max_pending_buffers capture frames (buffer_size bytes of f32 samples each)
// resampled to the transcription rate and packed as PCM16 behind the 44-byte
// header.
func (c *Config) forceFlushWAVBytes() int {
	frameSamples := c.Capture.BufferSize / 4
	flushSamples := int64(c.Detection.MaxPendingBuffers) * int64(frameSamples)
	resampled := flushSamples * int64(audio.TranscribeRate) / int64(c.Capture.SampleRate)
	return 44 + 2*int(resampled)
}

func isValidLanguageCode(code string) bool {
	validCodes := map[string]bool{
		"en": true, "es": true, "fr": true, "de": true, "it": true, "pt": true,
		"ru": true, "ja": true, "ko": true, "zh": true, "ar": true, "hi": true,
		"nl": true, "sv": true, "da": true, "no": true, "fi": true, "pl": true,
		"tr": true, "he": true, "th": true, "vi": true, "id": true, "ms": true,
		"uk": true, "cs": true, "hu": true, "ro": true, "bg": true, "hr": true,
		"sk": true, "sl": true, "et": true, "lv": true, "lt": true, "mt": true,
		"cy": true, "ga": true, "eu": true, "ca": true, "gl": true, "is": true,
	}
	return validCodes[code]
}
