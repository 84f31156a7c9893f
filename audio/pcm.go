package audio

import (
	"encoding/binary"
	"time"
)

const (
	// BitsPerSample for all PCM handled here (int16 little-endian, mono).
	BitsPerSample = 16
	Channels      = 1

	// Sample rates of the live voice channel: microphone input is sent at
	// 16 kHz, synthesized speech arrives at 24 kHz.
	InputSampleRate  = 16000
	OutputSampleRate = 24000
)

// Duration reports how long a mono PCM16 byte stream plays at the given
// sample rate.
func Duration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(pcm) / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// BytesToSamples decodes little-endian PCM16 bytes into samples. A trailing
// odd byte is dropped.
func BytesToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}

// SamplesToBytes encodes samples as little-endian PCM16 bytes.
func SamplesToBytes(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}
