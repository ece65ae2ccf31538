package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/cmd/config"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/internal/recorder"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/audiodevice/device"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/encoderdecoder"
)

// Write a 16 bit stereo .WAV file holding numFrames frames of a constant level.
func writeSourceWAV(t *testing.T, numFrames int, level int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, 2*numFrames)
	for i := range data {
		data[i] = level
	}
	encoder := wav.NewEncoder(f, 44100, 16, 2, 1)
	require.NoError(t, encoder.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, encoder.Close())
	return path
}

func newTestSetup(t *testing.T, sourcePath string, blockDuration time.Duration, cfg config.Config) (*recorder.Recorder, *device.FileAudioSourceDevice) {
	t.Helper()
	fileSource, err := device.NewFileAudioSourceDevice(sourcePath, cfg.SourceBlockSize, blockDuration)
	require.NoError(t, err)
	return initializeRecorder(cfg, device.NewAudioAugmentationDevice(fileSource), nil), fileSource
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		SourceBlockSize: 64,
		Capture:         audiodevice.DefaultCaptureConfig(),
		OverflowPolicy:  encoderdecoder.OverflowWrap,
		Output:          filepath.Join(t.TempDir(), "recording.wav"),
	}
}

func TestRecordUntilSourceEnds(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capture.Volume = 0.5
	rec, fileSource := newTestSetup(t, writeSourceWAV(t, 200, 32767), time.Millisecond, cfg)

	require.NoError(t, record(context.Background(), cfg, rec, fileSource))
	assert.Equal(t, recorder.StateIdle, rec.State())

	container, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	info, err := encoderdecoder.ReadContainerInfo(container)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), info.Frames)

	samples, err := encoderdecoder.NewWAVEncoderDecoder(cfg.OverflowPolicy).Decode(container)
	require.NoError(t, err)
	require.Len(t, samples, 400)
	assert.InDelta(t, 0.5, samples[0], 1.0/32767)
	assert.InDelta(t, 0.5, samples[399], 1.0/32767)
}

func TestRecordStopsAfterDuration(t *testing.T) {
	cfg := testConfig(t)
	cfg.Duration = 20 * time.Millisecond
	// Blocks an hour apart: nothing is delivered before the duration elapses
	rec, fileSource := newTestSetup(t, writeSourceWAV(t, 200, 100), time.Hour, cfg)

	start := time.Now()
	require.NoError(t, record(context.Background(), cfg, rec, fileSource))
	assert.Less(t, time.Since(start), 10*time.Second)

	container, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Len(t, container, encoderdecoder.HeaderSize)
	assert.NoError(t, encoderdecoder.ValidateContainer(container))
}

func TestRecordStopsOnInterrupt(t *testing.T) {
	cfg := testConfig(t)
	rec, fileSource := newTestSetup(t, writeSourceWAV(t, 200, 100), time.Hour, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	require.NoError(t, record(ctx, cfg, rec, fileSource))

	container, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Len(t, container, encoderdecoder.HeaderSize)
}

func TestRecordInterruptedBeforeCapture(t *testing.T) {
	cfg := testConfig(t)
	rec, fileSource := newTestSetup(t, writeSourceWAV(t, 10, 100), time.Millisecond, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, record(ctx, cfg, rec, fileSource))

	assert.Equal(t, recorder.StateIdle, rec.State())
	_, err := os.Stat(cfg.Output)
	assert.True(t, os.IsNotExist(err), "nothing is written when capture never started")
}

func TestRecordReportsUnwritableOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output = filepath.Join(t.TempDir(), "missing", "recording.wav")
	rec, fileSource := newTestSetup(t, writeSourceWAV(t, 10, 100), time.Millisecond, cfg)

	assert.Error(t, record(context.Background(), cfg, rec, fileSource))
	assert.Equal(t, recorder.StateIdle, rec.State())
}
