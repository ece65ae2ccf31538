package encoderdecoder

import (
	"errors"
	"fmt"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
)

type EncoderDecoderTypeEnum string

var (
	EncoderDecoderTypeNotImplemented EncoderDecoderTypeEnum = "not implemented"
	EncoderDecoderTypeWAV            EncoderDecoderTypeEnum = "wav"
)

var (
	ErrEncoderDecoderTypeNotImplemented = errors.New("specified encoderdecoder type is not implemented")
	ErrUnknownOverflowPolicy            = errors.New("unknown overflow policy")
)

// Audio encoder/decoder interface.
// Used to encode an interleaved PCM stream to an encoded frame (e.g. a full container),
// and decode such a frame back to an interleaved PCM stream
type EncoderDecoder interface {
	Encode(pcmData frame.PCMFrame) (frame.EncodedFrame, error)
	Decode(encodedData frame.EncodedFrame) (frame.PCMFrame, error)
}

// --------------------------------------------------------------------------------
// Overflow handling

// How samples outside of [-1, 1] are mapped to 16 bit integers.
type OverflowPolicy int

const (
	// Reduce the scaled sample modulo 2^16, so out of range input wraps around.
	// This is the default.
	OverflowWrap OverflowPolicy = iota

	// Clamp the scaled sample to [-32768, 32767].
	OverflowSaturate
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowWrap:
		return "wrap"
	case OverflowSaturate:
		return "saturate"
	}
	return "?"
}

// Parse an OverflowPolicy from its name, as used in configuration files.
// The empty string is the default policy.
func ParseOverflowPolicy(name string) (OverflowPolicy, error) {
	switch name {
	case "", "wrap":
		return OverflowWrap, nil
	case "saturate":
		return OverflowSaturate, nil
	}
	return OverflowWrap, fmt.Errorf("%w: %q", ErrUnknownOverflowPolicy, name)
}

// --------------------------------------------------------------------------------

type options struct {
	overflowPolicy OverflowPolicy
}

type Option func(*options)

func WithOverflowPolicy(policy OverflowPolicy) Option {
	return func(o *options) {
		o.overflowPolicy = policy
	}
}

// Create a new encoder/decoder of the requested type.
// If the type does not have an implementation, a nil Encoder/Decoder
// and an error is returned.
func NewEncoderDecoder(
	encoderdecoderID EncoderDecoderTypeEnum,
	opts ...Option,
) (EncoderDecoder, error) {
	o := options{overflowPolicy: OverflowWrap}
	for _, opt := range opts {
		opt(&o)
	}

	switch encoderdecoderID {
	case EncoderDecoderTypeWAV:
		return NewWAVEncoderDecoder(o.overflowPolicy), nil
	case EncoderDecoderTypeNotImplemented:
		return nil, ErrEncoderDecoderTypeNotImplemented
	default:
		return nil, ErrEncoderDecoderTypeNotImplemented
	}
}
