package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	greffierDir := filepath.Join(configDir, "greffier")
	if err := os.MkdirAll(greffierDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(greffierDir, "config.toml"), nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	// First run: write defaults so users have a file to edit.
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Printf("Config: no config file found at %s, creating with defaults", configPath)
		if err := SaveDefaultConfig(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return Load()
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	log.Printf("Config: loading configuration from %s", configPath)
	config, err := LoadFrom(configPath)
	if err != nil {
		return nil, err
	}

	log.Printf("Config: configuration loaded successfully")
	return config, nil
}

// LoadFrom parses a configuration file at an explicit path. Fields left unset
// keep their defaults.
func LoadFrom(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	config.applyThreadsDefault()
	return config, nil
}

// applyThreadsDefault sets thread count for the local fallback if not explicitly set
func (c *Config) applyThreadsDefault() {
	if c.Transcription.LocalThreads == 0 {
		threads := runtime.NumCPU() - 1
		if threads < 1 {
			threads = 1
		}
		c.Transcription.LocalThreads = threads
	}
}

func SaveDefaultConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	configContent := `# Greffier Configuration
# This file is automatically generated with defaults.
# Edit values as needed - changes are applied immediately without daemon restart.

# Audio Capture Configuration
[capture]
  sample_rate = 48000          # Capture sample rate in Hz (audio is resampled to 16000 for transcription)
  channels = 1                 # Number of audio channels (1 = mono, 2 = stereo)
  device = ""                  # PipeWire audio device (empty = use default microphone)
  buffer_size = 19200          # Frame size in bytes (19200 = 100ms of f32 mono at 48kHz)
  channel_buffer_size = 30     # Audio frame buffer size (frames to buffer)
  timeout = "4h"               # Maximum session duration

# Voice Activity Detection and Segmentation
[detection]
  min_threshold = 0.004        # Energy floor below which audio is never considered speech
  threshold_ratio = 0.3        # Activation threshold as a fraction of recent average energy
  window_size = 20             # Rolling energy window size (buffers)
  min_active_bytes = 4096      # Undecodable buffers at least this large count as active
  silence_debounce = "1.5s"    # Silence duration that closes a segment
  max_pending_buffers = 30     # Force a flush after this many active buffers (~3s of continuous speech)

# Transcription Configuration
[transcription]
  bridge_url = "http://127.0.0.1:8990"  # Transcription bridge endpoint
  bridge_token = ""            # Bearer token for the bridge (empty = no auth)
  tier = "standard"            # "standard" allows local fallback, "high" requires the bridge
  model = "whisper-large-v3"   # Model requested from the bridge
  language = ""                # Language code (empty for auto-detect, "en", "fr", etc.)
  timeout = "120s"             # Per-segment transcription timeout
  min_segment_bytes = 8000     # Segments smaller than this are skipped as silence
  queue_depth = 16             # Dispatch queue depth (oldest segment dropped when full)
  word_repeats = 4             # Single word repeated this often is discarded as a hallucination
  phrase_repeats = 3           # Short phrase repeated this often is discarded
  local_model = ""             # whisper-cli model path for the local fallback (empty = disabled)
  local_threads = 0            # CPU threads for local fallback (0 = auto: NumCPU-1)

# Running Summary Configuration
[summary]
  enabled = false              # Enable LLM summarization of the running transcript
  bridge_url = "http://127.0.0.1:8991/v1"  # OpenAI-compatible LLM bridge endpoint
  api_key = ""                 # API key for the LLM bridge (empty = no auth)
  model = "llama3"             # Model name
  template = "session-notes"   # Prompt template ("session-notes" or "brief")
  min_increment_chars = 200    # Minimum new transcript text before a summary is requested

# Storage Configuration
[storage]
  enabled = true               # Persist audio segments and transcripts to SQLite
  path = ""                    # Database path (empty = user cache dir)

# Desktop Notification Configuration
[notifications]
  enabled = true               # Enable notifications
  type = "desktop"             # Notification type ("desktop", "log", "none")
`

	if _, err := file.WriteString(configContent); err != nil {
		return fmt.Errorf("failed to write config content: %w", err)
	}

	return nil
}
