package device

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
)

var testProperties = audiodevice.DeviceProperties{SampleRate: 44100, NumChannels: 2}

// Write interleaved 16 bit samples to a .WAV file in a temporary directory.
func writeTestWAV(t *testing.T, numChannels int, data []int) string {
	t.Helper()
	return writeTestWAVWithDepth(t, numChannels, 16, data)
}

func writeTestWAVWithDepth(t *testing.T, numChannels int, bitDepth int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	encoder := wav.NewEncoder(f, 44100, bitDepth, numChannels, 1)
	require.NoError(t, encoder.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: numChannels, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, encoder.Close())
	return path
}

type blockCollector struct {
	mu     sync.Mutex
	blocks []frame.SampleBlock
}

func (c *blockCollector) collect(block frame.SampleBlock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owned := append(frame.PCMFrame(nil), block.Samples...)
	c.blocks = append(c.blocks, frame.SampleBlock{Channel: block.Channel, Samples: owned})
}

func (c *blockCollector) get() []frame.SampleBlock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]frame.SampleBlock(nil), c.blocks...)
}

// --------------------------------------------------------------------------------
// DummyAudioSourceDevice

func TestDummyDeviceGrantAndDeny(t *testing.T) {
	d := NewDummyAudioSourceDevice(testProperties)
	ctx := context.Background()

	first := d.RequestAccess(ctx, audiodevice.DefaultCaptureConfig())
	second := d.RequestAccess(ctx, audiodevice.CaptureConfig{Volume: 0.5})
	assert.Equal(t, 2, d.PendingRequests())

	require.True(t, d.Grant())
	require.True(t, d.Deny())
	assert.False(t, d.Grant())

	assert.NoError(t, <-first)
	assert.ErrorIs(t, <-second, audiodevice.ErrAccessDenied)
	assert.Equal(t, float32(0.5), d.Requests()[1].Volume)
}

func TestDummyDeviceAutoGrant(t *testing.T) {
	d := NewDummyAudioSourceDevice(testProperties)
	d.GrantAutomatically()

	assert.NoError(t, <-d.RequestAccess(context.Background(), audiodevice.CaptureConfig{}))
	assert.Equal(t, 0, d.PendingRequests())
}

func TestDummyDeviceEmitAndDetach(t *testing.T) {
	d := NewDummyAudioSourceDevice(testProperties)
	assert.False(t, d.EmitStereo(frame.PCMFrame{1}, frame.PCMFrame{2}))

	var c blockCollector
	d.OnBlock(c.collect)
	assert.True(t, d.Attached())
	assert.True(t, d.EmitStereo(frame.PCMFrame{1}, frame.PCMFrame{2}))

	d.Detach()
	assert.False(t, d.Attached())
	assert.False(t, d.Emit(frame.SampleBlock{Channel: frame.ChannelLeft, Samples: frame.PCMFrame{3}}))
	assert.Equal(t, 1, d.Detaches())

	blocks := c.get()
	require.Len(t, blocks, 2)
	assert.Equal(t, frame.ChannelLeft, blocks[0].Channel)
	assert.Equal(t, frame.ChannelRight, blocks[1].Channel)
}

// --------------------------------------------------------------------------------
// AudioAugmentationDevice

func TestAugmentationDeviceAppliesRequestedVolume(t *testing.T) {
	inner := NewDummyAudioSourceDevice(testProperties)
	inner.GrantAutomatically()
	d := NewAudioAugmentationDevice(inner)

	require.NoError(t, <-d.RequestAccess(context.Background(), audiodevice.CaptureConfig{Volume: 0.5}))
	assert.Equal(t, float32(0.5), d.GetVolumeAdjustMagnitude())

	var c blockCollector
	d.OnBlock(c.collect)
	source := frame.PCMFrame{1, -0.5}
	inner.EmitStereo(source, source)

	blocks := c.get()
	require.Len(t, blocks, 2)
	assert.Equal(t, frame.PCMFrame{0.5, -0.25}, blocks[0].Samples)
	assert.Equal(t, frame.PCMFrame{1, -0.5}, source, "source block must not be modified")

	d.Detach()
	assert.Equal(t, 1, inner.Detaches())
	assert.Equal(t, testProperties, d.GetDeviceProperties())
}

func TestAugmentationDeviceVolumeDefaultsAndBounds(t *testing.T) {
	inner := NewDummyAudioSourceDevice(testProperties)
	inner.GrantAutomatically()
	d := NewAudioAugmentationDevice(inner)

	<-d.RequestAccess(context.Background(), audiodevice.CaptureConfig{})
	assert.Equal(t, float32(1.0), d.GetVolumeAdjustMagnitude())

	d.SetVolumeAdjustMagnitude(-3)
	assert.Equal(t, float32(0), d.GetVolumeAdjustMagnitude())
}

// --------------------------------------------------------------------------------
// FileAudioSourceDevice

func TestFileDeviceDeliversStereoBlocks(t *testing.T) {
	// 5 frames of stereo audio, left positive and right negative
	data := []int{0, 0, 32767, -32767, 16384, -16384, 100, -100, 200, -200}
	path := writeTestWAV(t, 2, data)

	d, err := NewFileAudioSourceDevice(path, 2, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, testProperties, d.GetDeviceProperties())

	require.NoError(t, <-d.RequestAccess(context.Background(), audiodevice.DefaultCaptureConfig()))

	var c blockCollector
	d.OnBlock(c.collect)
	select {
	case <-d.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("file playback did not finish")
	}
	d.Detach()

	blocks := c.get()
	require.Len(t, blocks, 6)
	for i, block := range blocks {
		if i%2 == 0 {
			assert.Equal(t, frame.ChannelLeft, block.Channel)
		} else {
			assert.Equal(t, frame.ChannelRight, block.Channel)
		}
	}
	assert.Len(t, blocks[0].Samples, 2)
	assert.Len(t, blocks[4].Samples, 1, "final block is short")
	assert.InDelta(t, 1.0, blocks[0].Samples[1], 1e-6)
	assert.InDelta(t, -1.0, blocks[1].Samples[1], 1e-6)
}

func TestFileDeviceDuplicatesMono(t *testing.T) {
	path := writeTestWAV(t, 1, []int{32767, -32767, 0})

	d, err := NewFileAudioSourceDevice(path, 4096, time.Millisecond)
	require.NoError(t, err)

	var c blockCollector
	d.OnBlock(c.collect)
	<-d.Done()
	d.Detach()

	blocks := c.get()
	require.Len(t, blocks, 2)
	assert.Equal(t, blocks[0].Samples, blocks[1].Samples)
	assert.Len(t, blocks[0].Samples, 3)
}

func TestFileDeviceCentresUnsigned8Bit(t *testing.T) {
	// 8 bit WAV is unsigned: 128 is silence
	path := writeTestWAVWithDepth(t, 1, 8, []int{128, 128, 255, 1})

	d, err := NewFileAudioSourceDevice(path, 4096, time.Millisecond)
	require.NoError(t, err)

	var c blockCollector
	d.OnBlock(c.collect)
	<-d.Done()
	d.Detach()

	blocks := c.get()
	require.Len(t, blocks, 2)
	samples := blocks[0].Samples
	require.Len(t, samples, 4)
	assert.Equal(t, float32(0), samples[0])
	assert.Equal(t, float32(0), samples[1])
	assert.InDelta(t, 1.0, samples[2], 1e-6)
	assert.InDelta(t, -1.0, samples[3], 1e-6)
}

func TestFileDeviceDetachStopsDelivery(t *testing.T) {
	path := writeTestWAV(t, 2, make([]int, 2*1000))

	d, err := NewFileAudioSourceDevice(path, 1, time.Hour)
	require.NoError(t, err)

	var c blockCollector
	d.OnBlock(c.collect)
	d.Detach()

	assert.Empty(t, c.get())
	select {
	case <-d.Done():
		t.Fatal("playback must not complete after detach")
	default:
	}
}

func TestFileDeviceDeniesEndedContext(t *testing.T) {
	path := writeTestWAV(t, 2, []int{1, 1})
	d, err := NewFileAudioSourceDevice(path, 4096, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, <-d.RequestAccess(ctx, audiodevice.CaptureConfig{}), audiodevice.ErrAccessDenied)
}

func TestFileDeviceRejectsBadInput(t *testing.T) {
	_, err := NewFileAudioSourceDevice(filepath.Join(t.TempDir(), "missing.wav"), 4096, 0)
	assert.Error(t, err)

	path := writeTestWAV(t, 2, []int{1, 1})
	_, err = NewFileAudioSourceDevice(path, 0, 0)
	assert.ErrorIs(t, err, errInvalidBlockSize)

	garbage := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a wav file"), 0o644))
	_, err = NewFileAudioSourceDevice(garbage, 4096, 0)
	assert.Error(t, err)
}
