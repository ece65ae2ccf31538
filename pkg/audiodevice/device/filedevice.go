package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/internal/pcm"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
)

var (
	errInvalidBlockSize = errors.New("block size must be positive")
)

// --------------------------------------------------------------------------------
// FileAudioSourceDevice

// Define an AudioSourceDevice that replays a .WAV file as if it were captured live.
//
// The file is decoded once, split into left and right channels (mono files are
// duplicated onto both), and delivered as one block per channel per tick.
// Playback starts when a callback is registered with OnBlock and stops on Detach
// or at the end of the file. A later attach replays from the beginning.
type FileAudioSourceDevice struct {
	logger *slog.Logger
	uuid   uuid.UUID

	properties    audiodevice.DeviceProperties
	left          frame.PCMFrame
	right         frame.PCMFrame
	blockSize     int
	blockDuration time.Duration

	mu         sync.Mutex
	callback   func(frame.SampleBlock)
	playCancel context.CancelFunc
	playing    sync.WaitGroup

	done     chan struct{}
	doneOnce sync.Once
}

// Make a new FileAudioSourceDevice from a .WAV file (on the audioFilePath).
//
// Each tick delivers blockSize samples per channel. The time between ticks is
// blockDuration, or the real time length of one block if blockDuration is not positive.
func NewFileAudioSourceDevice(
	audioFilePath string,
	blockSize int,
	blockDuration time.Duration,
) (*FileAudioSourceDevice, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"file source device uuid", uuid,
	)

	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", errInvalidBlockSize, blockSize)
	}

	f, err := os.Open(audioFilePath)
	if err != nil {
		logger.Error(
			"could not open audio file",
			"audioFile", audioFilePath,
			"err", err,
		)
		return nil, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		logger.Error(
			"could not decode audio file",
			"audioFile", audioFilePath,
			"err", decoder.Err(),
		)
		return nil, errors.New("error while decoding audio file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		logger.Error(
			"could not get full PCM buffer from audio file",
			"audioFile", audioFilePath,
			"err", err,
		)
		return nil, err
	}
	left, right := pcm.Deinterleave(pcm.FromIntBuffer(buf), int(decoder.NumChans))

	if blockDuration <= 0 {
		blockDuration = time.Duration(blockSize) * time.Second / time.Duration(decoder.SampleRate)
	}

	logger.Debug(
		"loaded audio file",
		"audioFile", audioFilePath,
		"sampleRate", decoder.SampleRate,
		"channels", decoder.NumChans,
		"samplesPerChannel", len(left),
		"blockSize", blockSize,
		"blockDuration", blockDuration,
	)

	return &FileAudioSourceDevice{
		logger: logger,
		uuid:   uuid,
		properties: audiodevice.DeviceProperties{
			SampleRate:  int(decoder.SampleRate),
			NumChannels: int(decoder.NumChans),
		},
		left:          left,
		right:         right,
		blockSize:     blockSize,
		blockDuration: blockDuration,
		done:          make(chan struct{}),
	}, nil
}

// A file is always readable once decoded, so access is granted at once
// unless the context has already ended.
func (d *FileAudioSourceDevice) RequestAccess(ctx context.Context, cfg audiodevice.CaptureConfig) <-chan error {
	result := make(chan error, 1)
	if err := ctx.Err(); err != nil {
		result <- fmt.Errorf("%w: %w", audiodevice.ErrAccessDenied, err)
		return result
	}

	d.logger.Debug(
		"access granted",
		"requestedSampleRate", cfg.SampleRate,
		"requestedChannels", cfg.ChannelCount,
		"fileSampleRate", d.properties.SampleRate,
	)
	result <- nil
	return result
}

// Register the callback and start playback if it is not already running.
// A nil callback is the same as Detach.
func (d *FileAudioSourceDevice) OnBlock(callback func(frame.SampleBlock)) {
	if callback == nil {
		d.Detach()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback
	if d.playCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.playCancel = cancel
	d.playing.Add(1)
	go d.play(ctx)
}

// Stop playback. Blocks until the playback goroutine has exited,
// so no block is delivered after Detach returns.
func (d *FileAudioSourceDevice) Detach() {
	d.mu.Lock()
	cancel := d.playCancel
	d.playCancel = nil
	d.callback = nil
	d.mu.Unlock()

	if cancel != nil {
		d.logger.Debug("detaching")
		cancel()
		d.playing.Wait()
	}
}

func (d *FileAudioSourceDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.properties
}

// Closed once playback has delivered the final block of the file.
func (d *FileAudioSourceDevice) Done() <-chan struct{} {
	return d.done
}

func (d *FileAudioSourceDevice) play(ctx context.Context) {
	defer d.playing.Done()
	d.logger.Debug("playing audio")

	ticker := time.NewTicker(d.blockDuration)
	defer ticker.Stop()

	for blockStart := 0; blockStart < len(d.left); blockStart += d.blockSize {
		blockEnd := min(blockStart+d.blockSize, len(d.left))

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}

		d.deliver(frame.SampleBlock{Channel: frame.ChannelLeft, Samples: d.left[blockStart:blockEnd]})
		d.deliver(frame.SampleBlock{Channel: frame.ChannelRight, Samples: d.right[blockStart:blockEnd]})
	}

	d.logger.Debug("finished playing")
	d.doneOnce.Do(func() {
		close(d.done)
	})
}

func (d *FileAudioSourceDevice) deliver(block frame.SampleBlock) {
	d.mu.Lock()
	callback := d.callback
	d.mu.Unlock()

	if callback != nil {
		callback(block)
	}
}
