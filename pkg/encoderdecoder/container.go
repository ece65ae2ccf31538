package encoderdecoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// The fixed output format of the WAV container.
const (
	HeaderSize = 44

	WAVAudioFormatPCM   = 1
	WAVNumChannels      = 2
	WAVSampleRate       = 44100
	WAVBitsPerSample    = 16
	WAVBytesPerSample   = WAVBitsPerSample / 8
	WAVBlockAlign       = WAVNumChannels * WAVBytesPerSample
	WAVFmtChunkSize     = 16
	WAVRiffHeaderExtent = HeaderSize - 8

	// The byte rate field carries sample rate × bytes per sample (88200), the value
	// of the established layout this recorder writes. Readers derive timing from
	// the sample rate and block align.
	WAVByteRate = WAVSampleRate * WAVBytesPerSample
)

var (
	ErrContainerTooShort = errors.New("container too short")
	ErrInvalidContainer  = errors.New("invalid container")
	ErrUnsupportedFormat = errors.New("unsupported container format")
	ErrContainerTooLarge = errors.New("stream too long for container size fields")
)

// The canonical 44 byte header of a PCM WAV container, in file order.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + data bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // data bytes
}

// The header for a container with the given number of PCM data bytes.
// Every field is fixed except the two length fields.
func NewWAVHeader(dataBytes uint32) WAVHeader {
	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     WAVRiffHeaderExtent + dataBytes,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: WAVFmtChunkSize,
		AudioFormat:   WAVAudioFormatPCM,
		NumChannels:   WAVNumChannels,
		SampleRate:    WAVSampleRate,
		ByteRate:      WAVByteRate,
		BlockAlign:    WAVBlockAlign,
		BitsPerSample: WAVBitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataBytes,
	}
}

// Write the header for dataBytes of PCM data into the first HeaderSize bytes of dst.
func WriteHeader(dst []byte, dataBytes uint32) error {
	if len(dst) < HeaderSize {
		return fmt.Errorf("%w: need %d bytes for header, got %d", ErrContainerTooShort, HeaderSize, len(dst))
	}
	_, err := binary.Encode(dst[:HeaderSize], binary.LittleEndian, NewWAVHeader(dataBytes))
	return err
}

// Basic information about a container, read from its header.
type ContainerInfo struct {
	AudioFormat   uint16        `json:"audio_format"`
	SampleRate    uint32        `json:"sample_rate"`
	Channels      uint16        `json:"channels"`
	BitsPerSample uint16        `json:"bits_per_sample"`
	DataBytes     uint32        `json:"data_size_bytes"`
	Frames        uint32        `json:"num_frames"`
	Duration      time.Duration `json:"duration"`
}

// Parse and validate the header of a container.
//
// The data chunk is expected directly after the fmt chunk, as written by Encode.
func ReadContainerInfo(data []byte) (ContainerInfo, error) {
	if len(data) < HeaderSize {
		return ContainerInfo{}, fmt.Errorf("%w: need at least %d bytes, got %d", ErrContainerTooShort, HeaderSize, len(data))
	}

	var header WAVHeader
	if _, err := binary.Decode(data[:HeaderSize], binary.LittleEndian, &header); err != nil {
		return ContainerInfo{}, fmt.Errorf("%w: %w", ErrInvalidContainer, err)
	}

	switch {
	case string(header.ChunkID[:]) != "RIFF":
		return ContainerInfo{}, fmt.Errorf("%w: missing RIFF header", ErrInvalidContainer)
	case string(header.Format[:]) != "WAVE":
		return ContainerInfo{}, fmt.Errorf("%w: missing WAVE format", ErrInvalidContainer)
	case string(header.Subchunk1ID[:]) != "fmt ":
		return ContainerInfo{}, fmt.Errorf("%w: missing fmt chunk", ErrInvalidContainer)
	case string(header.Subchunk2ID[:]) != "data":
		return ContainerInfo{}, fmt.Errorf("%w: missing data chunk", ErrInvalidContainer)
	}

	if int64(header.Subchunk2Size) > int64(len(data)-HeaderSize) {
		return ContainerInfo{}, fmt.Errorf("%w: data chunk declares %d bytes, %d present",
			ErrInvalidContainer, header.Subchunk2Size, len(data)-HeaderSize)
	}

	info := ContainerInfo{
		AudioFormat:   header.AudioFormat,
		SampleRate:    header.SampleRate,
		Channels:      header.NumChannels,
		BitsPerSample: header.BitsPerSample,
		DataBytes:     header.Subchunk2Size,
	}

	frameBytes := uint32(header.NumChannels) * uint32(header.BitsPerSample/8)
	if frameBytes > 0 {
		info.Frames = header.Subchunk2Size / frameBytes
	}
	if header.SampleRate > 0 {
		info.Duration = time.Duration(info.Frames) * time.Second / time.Duration(header.SampleRate)
	}
	return info, nil
}

// Validate the header of a container without decoding the PCM data.
func ValidateContainer(data []byte) error {
	_, err := ReadContainerInfo(data)
	return err
}
