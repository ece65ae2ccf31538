package audiodevice

import (
	"context"
	"errors"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
)

var (
	// Returned (possibly wrapped) on the access channel of a source that refused capture.
	ErrAccessDenied = errors.New("access to audio source denied")
)

type DeviceProperties struct {
	SampleRate  int
	NumChannels int
}

// Capture parameters handed to a source when requesting access.
//
// These are advisory: a source may honour them (e.g. apply Volume) or ignore them.
// They never change the format of the encoded output.
type CaptureConfig struct {
	SampleRate   int
	ChannelCount int
	Volume       float32
}

const (
	DefaultCaptureSampleRate   = 44100
	DefaultCaptureChannelCount = 2
	DefaultCaptureVolume       = 1.0
)

func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:   DefaultCaptureSampleRate,
		ChannelCount: DefaultCaptureChannelCount,
		Volume:       DefaultCaptureVolume,
	}
}

// Fill every unset (zero or negative) field with its default.
func (cfg CaptureConfig) WithDefaults() CaptureConfig {
	defaults := DefaultCaptureConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaults.SampleRate
	}
	if cfg.ChannelCount <= 0 {
		cfg.ChannelCount = defaults.ChannelCount
	}
	if cfg.Volume <= 0 {
		cfg.Volume = defaults.Volume
	}
	return cfg
}

// Interface for audio source devices, e.g. microphones.
//
// A source delivers audio as SampleBlocks, one block per channel per tick, to the
// callback registered with OnBlock. The callback may be invoked from any goroutine.
type AudioSourceDevice interface {
	// Ask for permission to capture with the given configuration.
	//
	// Must not block. The returned channel yields exactly one value: nil once access
	// is granted, or an error wrapping ErrAccessDenied. The wait may be unbounded,
	// e.g. while a user answers a permission prompt.
	RequestAccess(ctx context.Context, cfg CaptureConfig) <-chan error

	// Register the callback that receives captured blocks.
	// A later registration replaces the earlier one.
	OnBlock(callback func(frame.SampleBlock))

	// Stop capture and disconnect the callback.
	//
	// It is assumed that once Detach returns, no further blocks are delivered.
	Detach()

	GetDeviceProperties() DeviceProperties
}
