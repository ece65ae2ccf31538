package encoderdecoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-audio/wav"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/internal/pcm"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
)

const (
	maxInt16 = float64(math.MaxInt16)

	// Largest number of samples whose byte length still fits the RIFF chunk size field
	maxStreamSamples = (math.MaxUint32 - WAVRiffHeaderExtent) / WAVBytesPerSample
)

// Encodes an interleaved stereo stream into a complete 16 bit PCM WAV container,
// and decodes such containers back to normalized samples.
//
// The container layout is fixed (44100 Hz, stereo, 16 bit) regardless of how the
// audio was captured.
type WAVEncoderDecoder struct {
	overflowPolicy OverflowPolicy
}

func NewWAVEncoderDecoder(overflowPolicy OverflowPolicy) WAVEncoderDecoder {
	return WAVEncoderDecoder{
		overflowPolicy: overflowPolicy,
	}
}

func (encdec WAVEncoderDecoder) OverflowPolicy() OverflowPolicy {
	return encdec.overflowPolicy
}

// Encode the interleaved stream into a container of exactly 44 + 2*len(pcmData) bytes.
//
// Each sample s is written as round(s * 32767), little endian. Samples outside of
// [-1, 1] follow the overflow policy. An empty stream gives a header-only container.
func (encdec WAVEncoderDecoder) Encode(pcmData frame.PCMFrame) (frame.EncodedFrame, error) {
	if uint64(len(pcmData)) > maxStreamSamples {
		return nil, fmt.Errorf("%w: %d samples", ErrContainerTooLarge, len(pcmData))
	}

	dataBytes := uint32(len(pcmData) * WAVBytesPerSample)
	container := make(frame.EncodedFrame, HeaderSize+int(dataBytes))
	if err := WriteHeader(container, dataBytes); err != nil {
		return nil, err
	}

	offset := HeaderSize
	for _, s := range pcmData {
		binary.LittleEndian.PutUint16(container[offset:], uint16(encdec.quantize(s)))
		offset += WAVBytesPerSample
	}
	return container, nil
}

// Decode a container produced by Encode back to an interleaved stream, rescaling
// each sample by 1/32767.
func (encdec WAVEncoderDecoder) Decode(encodedData frame.EncodedFrame) (frame.PCMFrame, error) {
	info, err := ReadContainerInfo(encodedData)
	if err != nil {
		return nil, err
	}
	if info.AudioFormat != WAVAudioFormatPCM || info.BitsPerSample != WAVBitsPerSample {
		return nil, fmt.Errorf("%w: format %d with %d bits per sample",
			ErrUnsupportedFormat, info.AudioFormat, info.BitsPerSample)
	}
	if info.DataBytes == 0 {
		return frame.PCMFrame{}, nil
	}

	decoder := wav.NewDecoder(bytes.NewReader(encodedData))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContainer, decoder.Err())
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidContainer, err)
	}
	return pcm.FromIntBuffer(buf), nil
}

// Scale a normalized sample to a 16 bit integer according to the overflow policy.
// NaN maps to 0, and infinities saturate under either policy.
func (encdec WAVEncoderDecoder) quantize(s float32) int16 {
	scaled := math.Round(float64(s) * maxInt16)
	switch {
	case math.IsNaN(scaled):
		return 0
	case math.IsInf(scaled, 1):
		return math.MaxInt16
	case math.IsInf(scaled, -1):
		return math.MinInt16
	}

	if encdec.overflowPolicy == OverflowSaturate {
		return int16(max(math.MinInt16, min(math.MaxInt16, scaled)))
	}

	// math.Mod keeps the value exact and within int32, whose conversion to int16
	// keeps the low 16 bits.
	return int16(int32(math.Mod(scaled, 1<<16)))
}
