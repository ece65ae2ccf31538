package frame

// A PCMFrame is a sequence of normalized audio samples, nominally in [-1, 1].
//
// Depending on context a PCMFrame holds a single channel (a block delivered by
// a source, or a merged channel) or several channels interleaved sample by sample.
type PCMFrame []float32

// An EncodedFrame is the output of an encoder, e.g. a complete WAV container.
type EncodedFrame []byte

// Channel identifies a capture channel.
// Channel 0 is always treated as left, regardless of the hardware channel mapping.
type Channel int

const (
	ChannelLeft  Channel = 0
	ChannelRight Channel = 1

	// The number of channels captured and encoded.
	NumChannels = 2

	// The nominal number of samples per channel in one SampleBlock.
	// The final block of a capture may be shorter.
	DefaultBlockSize = 4096
)

// Check if the channel is one of the captured channels.
func (c Channel) Valid() bool {
	return c == ChannelLeft || c == ChannelRight
}

func (c Channel) String() string {
	switch c {
	case ChannelLeft:
		return "left"
	case ChannelRight:
		return "right"
	}
	return "?"
}

// A SampleBlock is one chunk of single-channel audio delivered per capture tick.
type SampleBlock struct {
	Channel Channel
	Samples PCMFrame
}
