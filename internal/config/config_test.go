package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults pass",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero sample rate",
			mutate:  func(c *Config) { c.Capture.SampleRate = 0 },
			wantErr: true,
		},
		{
			name:    "negative buffer size",
			mutate:  func(c *Config) { c.Capture.BufferSize = -1 },
			wantErr: true,
		},
		{
			name:    "threshold ratio above one",
			mutate:  func(c *Config) { c.Detection.ThresholdRatio = 1.5 },
			wantErr: true,
		},
		{
			name:    "zero silence debounce",
			mutate:  func(c *Config) { c.Detection.SilenceDebounce = 0 },
			wantErr: true,
		},
		{
			name: "no backend at all",
			mutate: func(c *Config) {
				c.Transcription.BridgeURL = ""
				c.Transcription.LocalModel = ""
			},
			wantErr: true,
		},
		{
			name: "local only is fine for standard tier",
			mutate: func(c *Config) {
				c.Transcription.BridgeURL = ""
				c.Transcription.LocalModel = "/models/ggml-base.bin"
			},
			wantErr: false,
		},
		{
			name: "high tier requires bridge",
			mutate: func(c *Config) {
				c.Transcription.Tier = "high"
				c.Transcription.BridgeURL = ""
				c.Transcription.LocalModel = "/models/ggml-base.bin"
			},
			wantErr: true,
		},
		{
			name:    "unknown tier",
			mutate:  func(c *Config) { c.Transcription.Tier = "premium" },
			wantErr: true,
		},
		{
			name:    "malformed bridge url",
			mutate:  func(c *Config) { c.Transcription.BridgeURL = "not a url" },
			wantErr: true,
		},
		{
			name:    "bad language code",
			mutate:  func(c *Config) { c.Transcription.Language = "xx" },
			wantErr: true,
		},
		{
			name:    "valid language code",
			mutate:  func(c *Config) { c.Transcription.Language = "fr" },
			wantErr: false,
		},
		{
			name:    "word repeats below two",
			mutate:  func(c *Config) { c.Transcription.WordRepeats = 1 },
			wantErr: true,
		},
		{
			name: "summary enabled without bridge url",
			mutate: func(c *Config) {
				c.Summary.Enabled = true
				c.Summary.BridgeURL = ""
			},
			wantErr: true,
		},
		{
			name: "summary enabled with bad template",
			mutate: func(c *Config) {
				c.Summary.Enabled = true
				c.Summary.Template = "haiku"
			},
			wantErr: true,
		},
		{
			name: "summary disabled skips summary checks",
			mutate: func(c *Config) {
				c.Summary.Enabled = false
				c.Summary.Template = "haiku"
			},
			wantErr: false,
		},
		{
			name:    "unknown notification type",
			mutate:  func(c *Config) { c.Notifications.Type = "sms" },
			wantErr: true,
		},
		{
			// Two 100ms frames encode to ~6.4KB, below the 8000-byte skip
			// threshold: every forced flush would be discarded.
			name:    "force flush smaller than min segment",
			mutate:  func(c *Config) { c.Detection.MaxPendingBuffers = 2 },
			wantErr: true,
		},
		{
			name: "small force flush fine with matching min segment",
			mutate: func(c *Config) {
				c.Detection.MaxPendingBuffers = 2
				c.Transcription.MinSegmentBytes = 1000
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadFromMergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[capture]
sample_rate = 44100

[transcription]
bridge_url = "http://bridge.local:9000"
tier = "high"

[detection]
silence_debounce = "2s"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if c.Capture.SampleRate != 44100 {
		t.Errorf("sample_rate not applied: %d", c.Capture.SampleRate)
	}
	if c.Transcription.BridgeURL != "http://bridge.local:9000" {
		t.Errorf("bridge_url not applied: %q", c.Transcription.BridgeURL)
	}
	if c.Transcription.Tier != "high" {
		t.Errorf("tier not applied: %q", c.Transcription.Tier)
	}
	if c.Detection.SilenceDebounce != 2*time.Second {
		t.Errorf("silence_debounce not applied: %v", c.Detection.SilenceDebounce)
	}

	// Untouched sections keep defaults.
	if c.Capture.Channels != 1 {
		t.Errorf("channels default lost: %d", c.Capture.Channels)
	}
	if c.Detection.WindowSize != 20 {
		t.Errorf("window_size default lost: %d", c.Detection.WindowSize)
	}
	if c.Transcription.LocalThreads < 1 {
		t.Errorf("local_threads default not applied: %d", c.Transcription.LocalThreads)
	}
}

func TestLoadFromRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not valid toml ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConvertToDispatcherConfig(t *testing.T) {
	c := DefaultConfig()
	c.Transcription.WordRepeats = 6
	c.Transcription.Tier = "high"

	dc := c.ToDispatcherConfig("sess", "client")
	if dc.Guard.WordRepeats != 6 {
		t.Errorf("guard threshold not carried: %d", dc.Guard.WordRepeats)
	}
	if dc.SessionID != "sess" || dc.ClientID != "client" {
		t.Errorf("session context not carried: %q %q", dc.SessionID, dc.ClientID)
	}
	if string(dc.Tier) != "high" {
		t.Errorf("tier not mapped: %v", dc.Tier)
	}
}
