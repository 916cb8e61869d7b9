package config

import "time"

type Config struct {
	Capture       CaptureConfig       `toml:"capture"`
	Detection     DetectionConfig     `toml:"detection"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Summary       SummaryConfig       `toml:"summary"`
	Storage       StorageConfig       `toml:"storage"`
	Notifications NotificationsConfig `toml:"notifications"`
}

type CaptureConfig struct {
	SampleRate        int           `toml:"sample_rate"`
	Channels          int           `toml:"channels"`
	Device            string        `toml:"device"`
	BufferSize        int           `toml:"buffer_size"`
	ChannelBufferSize int           `toml:"channel_buffer_size"`
	Timeout           time.Duration `toml:"timeout"`
}

// DetectionConfig covers voice activity detection and segmentation.
type DetectionConfig struct {
	MinThreshold      float64       `toml:"min_threshold"`
	ThresholdRatio    float64       `toml:"threshold_ratio"`
	WindowSize        int           `toml:"window_size"`
	MinActiveBytes    int           `toml:"min_active_bytes"`
	SilenceDebounce   time.Duration `toml:"silence_debounce"`
	MaxPendingBuffers int           `toml:"max_pending_buffers"`
}

type TranscriptionConfig struct {
	BridgeURL       string        `toml:"bridge_url"`
	BridgeToken     string        `toml:"bridge_token"`
	Tier            string        `toml:"tier"` // "standard", "high"
	Model           string        `toml:"model"`
	Language        string        `toml:"language"`
	Timeout         time.Duration `toml:"timeout"`
	MinSegmentBytes int           `toml:"min_segment_bytes"`
	QueueDepth      int           `toml:"queue_depth"`
	WordRepeats     int           `toml:"word_repeats"`
	PhraseRepeats   int           `toml:"phrase_repeats"`
	LocalModel      string        `toml:"local_model"` // whisper-cli model path for the fallback
	LocalThreads    int           `toml:"local_threads"`
}

type SummaryConfig struct {
	Enabled           bool   `toml:"enabled"`
	BridgeURL         string `toml:"bridge_url"`
	APIKey            string `toml:"api_key"`
	Model             string `toml:"model"`
	Template          string `toml:"template"` // "session-notes", "brief"
	MinIncrementChars int    `toml:"min_increment_chars"`
}

type StorageConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // empty = user cache dir
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}
