package config

import "time"

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			SampleRate:        48000,
			Channels:          1,
			Device:            "",
			BufferSize:        19200,
			ChannelBufferSize: 30,
			Timeout:           4 * time.Hour,
		},
		Detection: DetectionConfig{
			MinThreshold:      0.004,
			ThresholdRatio:    0.30,
			WindowSize:        20,
			MinActiveBytes:    4096,
			SilenceDebounce:   1500 * time.Millisecond,
			MaxPendingBuffers: 30,
		},
		Transcription: TranscriptionConfig{
			BridgeURL:       "http://127.0.0.1:8990",
			Tier:            "standard",
			Model:           "whisper-large-v3",
			Language:        "",
			Timeout:         120 * time.Second,
			MinSegmentBytes: 8000,
			QueueDepth:      16,
			WordRepeats:     4,
			PhraseRepeats:   3,
			LocalThreads:    0,
		},
		Summary: SummaryConfig{
			Enabled:           false,
			BridgeURL:         "http://127.0.0.1:8991/v1",
			Model:             "llama3",
			Template:          "session-notes",
			MinIncrementChars: 200,
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    "",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
	}
}
