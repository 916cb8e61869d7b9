package audio

import (
	"bytes"
	"encoding/binary"
)

// Resample converts samples from srcRate to dstRate using linear-average
// decimation: every output slot takes the mean of all source samples whose
// time range maps onto it. This is a box filter, good enough for
// speech-to-text; it is not meant for high-fidelity audio. When the rates
// match the input is returned as-is.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 {
		return samples
	}

	outLen := int(float64(len(samples)) * float64(dstRate) / float64(srcRate))
	out := make([]float32, outLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := 0; i < outLen; i++ {
		start := int(float64(i) * ratio)
		end := int(float64(i+1) * ratio)
		if end > len(samples) {
			end = len(samples)
		}
		if start >= end {
			if start < len(samples) {
				out[i] = samples[start]
			}
			continue
		}
		var sum float64
		for j := start; j < end; j++ {
			sum += float64(samples[j])
		}
		out[i] = float32(sum / float64(end-start))
	}
	return out
}

// EncodeWAV resamples float samples at srcRate down to TranscribeRate and
// encodes them as a mono 16-bit PCM WAV container (44-byte header + data).
// Samples are clamped to [-1, 1] before quantization. Empty input yields a
// header-only container.
func EncodeWAV(samples []float32, srcRate int) []byte {
	resampled := Resample(samples, srcRate, TranscribeRate)
	return EncodePCM16WAV(ToPCM16(resampled), TranscribeRate)
}

// ToPCM16 quantizes float samples to 16-bit signed integers, clamping first
// so out-of-range input cannot wrap around.
func ToPCM16(samples []float32) []int16 {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		if s >= 0 {
			pcm[i] = int16(s * 32767)
		} else {
			pcm[i] = int16(s * 32768)
		}
	}
	return pcm
}

// EncodePCM16WAV wraps mono 16-bit PCM samples in a standard RIFF/WAVE
// container at the given rate.
func EncodePCM16WAV(pcm []int16, sampleRate int) []byte {
	const channels = 1
	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm) * 2

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))            // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))             // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))      // channels
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))    // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))      // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))    // block align
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample)) // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	binary.Write(&buf, binary.LittleEndian, pcm)

	return buf.Bytes()
}
