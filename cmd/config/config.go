package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/internal/utils"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/encoderdecoder"
)

var (
	ErrNoSourceFile = errors.New("source.file must be specified")
	ErrBadBlockSize = errors.New("source.blocksize must be positive")
	ErrBadDuration  = errors.New("duration must not be negative")
	ErrBadVolume    = errors.New("capture.volume must be positive")
)

// Everything cmd/recorder needs, read from viper after LoadConfig.
type Config struct {
	LogLevel string
	LogFile  string

	SourceFile      string
	SourceBlockSize int

	Capture        audiodevice.CaptureConfig
	OverflowPolicy encoderdecoder.OverflowPolicy

	Output         string
	Duration       time.Duration
	MetricsAddress string
}

// Read the config file into viper (on top of the defaults) and validate it.
//
// A missing config file is not an error: the defaults and environment still apply.
// Environment variables are prefixed WAVRECORDER_, e.g. WAVRECORDER_SOURCE_FILE.
func LoadConfig(configFilePath string) (Config, error) {
	utils.SetViperDefaults()
	viper.SetEnvPrefix("wavrecorder")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			slog.Info("no config file found", "configFilePath", configFilePath)
		} else {
			slog.Error("error during config read", "err", err)
			return Config{}, err
		}
	}

	return fromViper()
}

func fromViper() (Config, error) {
	overflowPolicy, err := encoderdecoder.ParseOverflowPolicy(viper.GetString("encoder.overflow"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		LogLevel:        viper.GetString("loglevel"),
		LogFile:         viper.GetString("logfile"),
		SourceFile:      viper.GetString("source.file"),
		SourceBlockSize: viper.GetInt("source.blocksize"),
		Capture: audiodevice.CaptureConfig{
			SampleRate:   viper.GetInt("capture.samplerate"),
			ChannelCount: viper.GetInt("capture.channelcount"),
			Volume:       float32(viper.GetFloat64("capture.volume")),
		},
		OverflowPolicy: overflowPolicy,
		Output:         viper.GetString("output"),
		Duration:       time.Duration(viper.GetFloat64("duration") * float64(time.Second)),
		MetricsAddress: viper.GetString("metrics.address"),
	}

	switch {
	case cfg.SourceFile == "":
		return Config{}, ErrNoSourceFile
	case cfg.SourceBlockSize <= 0:
		return Config{}, fmt.Errorf("%w: got %d", ErrBadBlockSize, cfg.SourceBlockSize)
	case cfg.Duration < 0:
		return Config{}, fmt.Errorf("%w: got %v", ErrBadDuration, cfg.Duration)
	// A zero volume would be taken as unset and record at full gain
	case cfg.Capture.Volume <= 0:
		return Config{}, fmt.Errorf("%w: got %v", ErrBadVolume, cfg.Capture.Volume)
	}
	return cfg, nil
}
