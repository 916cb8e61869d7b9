package capture

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "defaults valid",
			config: DefaultConfig(),
		},
		{
			name: "stereo valid",
			config: Config{
				SampleRate: 48000, Channels: 2, BufferSize: 38400, ChannelBufferSize: 30,
			},
		},
		{
			name: "zero sample rate",
			config: Config{
				SampleRate: 0, Channels: 1, BufferSize: 19200, ChannelBufferSize: 30,
			},
			wantErr: "SampleRate",
		},
		{
			name: "too many channels",
			config: Config{
				SampleRate: 48000, Channels: 3, BufferSize: 19200, ChannelBufferSize: 30,
			},
			wantErr: "Channels",
		},
		{
			name: "zero buffer size",
			config: Config{
				SampleRate: 48000, Channels: 1, BufferSize: 0, ChannelBufferSize: 30,
			},
			wantErr: "BufferSize",
		},
		{
			name: "zero channel buffer size",
			config: Config{
				SampleRate: 48000, Channels: 1, BufferSize: 19200, ChannelBufferSize: 0,
			},
			wantErr: "ChannelBufferSize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecorder(tt.config)
			err := r.validateConfig()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBuildPwRecordArgs(t *testing.T) {
	r := NewRecorder(DefaultConfig())
	args := r.buildPwRecordArgs()

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--format f32") {
		t.Errorf("missing float format: %v", args)
	}
	if !strings.Contains(joined, "--rate 48000") {
		t.Errorf("missing rate: %v", args)
	}
	if !strings.Contains(joined, "--channels 1") {
		t.Errorf("missing channels: %v", args)
	}
	if args[len(args)-1] != "-" {
		t.Errorf("output must be stdout: %v", args)
	}
	if strings.Contains(joined, "--target") {
		t.Errorf("no target expected with default device: %v", args)
	}
}

func TestBuildPwRecordArgsWithDevice(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device = "alsa_input.usb-mic"
	args := NewRecorder(cfg).buildPwRecordArgs()

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--target alsa_input.usb-mic") {
		t.Errorf("device not passed through: %v", args)
	}
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	r := NewRecorder(Config{})
	if _, _, err := r.Start(t.Context()); err == nil {
		t.Fatal("expected config validation error")
	}
	if r.IsRecording() {
		t.Fatal("failed start must not mark the recorder as recording")
	}
}

func TestAlignSamplesCarriesPartialSample(t *testing.T) {
	// Two floats delivered in three awkwardly split reads; no byte may be
	// dropped at the read boundaries.
	full := make([]byte, 8)
	binary.LittleEndian.PutUint32(full[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(full[4:], math.Float32bits(-0.5))

	var carry []byte
	var joined []byte
	for _, chunk := range [][]byte{full[:3], full[3:6], full[6:]} {
		var raw []byte
		raw, carry = alignSamples(carry, chunk)
		if len(raw)%4 != 0 {
			t.Fatalf("emitted %d bytes, not sample-aligned", len(raw))
		}
		joined = append(joined, raw...)
	}

	if len(carry) != 0 {
		t.Fatalf("%d bytes stranded in carry", len(carry))
	}
	if !bytes.Equal(joined, full) {
		t.Fatalf("reassembled stream differs: %x vs %x", joined, full)
	}
}

func TestAlignSamplesAlignedPassthrough(t *testing.T) {
	chunk := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	raw, rest := alignSamples(nil, chunk)
	if !bytes.Equal(raw, chunk) || rest != nil {
		t.Fatalf("aligned chunk should pass through untouched, got raw=%x rest=%x", raw, rest)
	}
}

func TestStopIdempotent(t *testing.T) {
	r := NewRecorder(DefaultConfig())
	if err := r.Stop(); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
