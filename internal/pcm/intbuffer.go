package pcm

import (
	goaudio "github.com/go-audio/audio"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
)

const (
	defaultSourceBitDepth = 16

	// 8 bit WAV samples are unsigned, centred on 128.
	unsignedBitDepth = 8
	unsignedOffset   = 128
)

// Convert integer PCM, as produced by the go-audio decoders, to normalized floats.
//
// Samples are divided by the largest positive value of the source bit depth
// (32767 for 16 bit audio), the inverse of the scaling used when encoding.
// 8 bit samples are first shifted from [0, 255] to [-128, 127].
func FromIntBuffer(buf *goaudio.IntBuffer) frame.PCMFrame {
	if buf == nil {
		return frame.PCMFrame{}
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = defaultSourceBitDepth
	}
	maxValue := float32(int64(1)<<(bitDepth-1) - 1)

	offset := 0
	if bitDepth == unsignedBitDepth {
		offset = unsignedOffset
	}

	samples := make(frame.PCMFrame, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v-offset) / maxValue
	}
	return samples
}
