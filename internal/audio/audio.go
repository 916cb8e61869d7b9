package audio

import (
	"encoding/binary"
	"math"
)

// TranscribeRate is the sample rate every segment is encoded at before it is
// handed to a transcription backend.
const TranscribeRate = 16000

// Origin tags where a segment's audio came from.
type Origin string

const (
	OriginRecorded Origin = "recorded"
	OriginUploaded Origin = "uploaded"
)

// Segment is a finalized, bounded span of captured audio ready for
// transcription. It is immutable once emitted: the segmenter hands it to the
// dispatcher, which consumes it exactly once.
type Segment struct {
	Samples    []float32
	SampleRate int
	Channels   int
	Origin     Origin
	SourceFile string
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// DecodeF32LE converts raw little-endian 32-bit float PCM bytes (the capture
// wire format) into samples. A trailing partial sample is ignored.
func DecodeF32LE(data []byte) []float32 {
	n := len(data) / 4
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

// DownmixStereo averages interleaved stereo samples into mono. Mono input is
// returned unchanged.
func DownmixStereo(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	mono := make([]float32, len(samples)/channels)
	for i := range mono {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
