package utils

import (
	"github.com/spf13/viper"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/encoderdecoder"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
)

// Set the viper defaults for the recorder.
// For use in cmd/recorder via cmd/config.
func SetViperDefaults() {
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")
	viper.SetDefault("source.file", "")
	viper.SetDefault("source.blocksize", frame.DefaultBlockSize)
	capture := audiodevice.DefaultCaptureConfig()
	viper.SetDefault("capture.samplerate", capture.SampleRate)
	viper.SetDefault("capture.channelcount", capture.ChannelCount)
	viper.SetDefault("capture.volume", capture.Volume)
	viper.SetDefault("encoder.overflow", encoderdecoder.OverflowWrap.String())
	viper.SetDefault("output", "recording.wav")
	viper.SetDefault("duration", 0)
	viper.SetDefault("metrics.address", "")
}
