package config

import (
	"time"

	"github.com/greffier/greffier/internal/capture"
	"github.com/greffier/greffier/internal/llm"
	"github.com/greffier/greffier/internal/segmenter"
	"github.com/greffier/greffier/internal/transcriber"
	"github.com/greffier/greffier/internal/vad"
)

func (c *Config) ToCaptureConfig() capture.Config {
	return capture.Config{
		SampleRate:        c.Capture.SampleRate,
		Channels:          c.Capture.Channels,
		BufferSize:        c.Capture.BufferSize,
		Device:            c.Capture.Device,
		ChannelBufferSize: c.Capture.ChannelBufferSize,
	}
}

func (c *Config) ToVADConfig() vad.Config {
	return vad.Config{
		MinThreshold:   c.Detection.MinThreshold,
		WindowSize:     c.Detection.WindowSize,
		ThresholdRatio: c.Detection.ThresholdRatio,
		MinActiveBytes: c.Detection.MinActiveBytes,
	}
}

func (c *Config) ToSegmenterConfig() segmenter.Config {
	return segmenter.Config{
		SilenceDebounce:   c.Detection.SilenceDebounce,
		MaxPendingBuffers: c.Detection.MaxPendingBuffers,
		SampleRate:        c.Capture.SampleRate,
	}
}

func (c *Config) ToBridgeConfig() transcriber.BridgeConfig {
	return transcriber.BridgeConfig{
		BaseURL:  c.Transcription.BridgeURL,
		Token:    c.Transcription.BridgeToken,
		Model:    c.Transcription.Model,
		Language: c.Transcription.Language,
		Timeout:  c.Transcription.Timeout,
	}
}

func (c *Config) ToDispatcherConfig(sessionID, clientID string) transcriber.DispatcherConfig {
	return transcriber.DispatcherConfig{
		Tier:            c.Tier(),
		MinSegmentBytes: c.Transcription.MinSegmentBytes,
		QueueDepth:      c.Transcription.QueueDepth,
		Guard: transcriber.GuardConfig{
			WordRepeats:   c.Transcription.WordRepeats,
			PhraseRepeats: c.Transcription.PhraseRepeats,
		},
		SessionID: sessionID,
		ClientID:  clientID,
	}
}

func (c *Config) Tier() transcriber.Tier {
	if c.Transcription.Tier == "high" {
		return transcriber.TierHigh
	}
	return transcriber.TierStandard
}

func (c *Config) ToLLMConfig() llm.Config {
	return llm.Config{
		BaseURL:  c.Summary.BridgeURL,
		APIKey:   c.Summary.APIKey,
		Model:    c.Summary.Model,
		Template: c.Summary.Template,
	}
}

// SessionTimeout bounds a recording session.
func (c *Config) SessionTimeout() time.Duration {
	return c.Capture.Timeout
}
