package device

import (
	"context"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
)

// Middle-man device to handle audio augmentations, such as volume controls.
//
// Wraps another AudioSourceDevice: access requests and detaches are forwarded,
// and every block the wrapped source delivers passes through the augmentation
// functions before reaching the registered callback.
type AudioAugmentationDevice struct {
	source audiodevice.AudioSourceDevice

	mu                    sync.RWMutex
	volumeAdjustMagnitude float32

	augmentationFunctions []audioAugmentationFunction
}

// Create a new AudioAugmentationDevice around source, automatically adding
// audioAugmentationFunctions:
//   - volumeAdjust (controlled with SetVolumeAdjustMagnitude, or the Volume of the
//     CaptureConfig passed to RequestAccess)
func NewAudioAugmentationDevice(source audiodevice.AudioSourceDevice) *AudioAugmentationDevice {
	device := &AudioAugmentationDevice{
		source:                source,
		volumeAdjustMagnitude: 1.0,
	}

	device.augmentationFunctions = []audioAugmentationFunction{
		device.volumeAdjust,
	}
	return device
}

// --------------------------------------------------------------------------------
// AudioSourceDevice Interface

// Adopt the requested volume, then forward the request to the wrapped source.
func (d *AudioAugmentationDevice) RequestAccess(ctx context.Context, cfg audiodevice.CaptureConfig) <-chan error {
	d.SetVolumeAdjustMagnitude(cfg.WithDefaults().Volume)
	return d.source.RequestAccess(ctx, cfg)
}

func (d *AudioAugmentationDevice) OnBlock(callback func(frame.SampleBlock)) {
	if callback == nil {
		d.source.OnBlock(nil)
		return
	}

	d.source.OnBlock(func(block frame.SampleBlock) {
		for _, f := range d.augmentationFunctions {
			block.Samples = f(block.Samples)
		}
		callback(block)
	})
}

func (d *AudioAugmentationDevice) Detach() {
	d.source.Detach()
}

// The device properties of the incoming and outgoing blocks are identical.
func (d *AudioAugmentationDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.source.GetDeviceProperties()
}

// --------------------------------------------------------------------------------
// Methods relating to changing the augmentation functions

// Set the volumeAdjustMagnitude to a new value. Must be non-negative.
// 0.0 means muted, 1.0 is natural scaling, technically uncapped but
// samples pushed outside of [-1, 1] will overflow when encoded.
func (d *AudioAugmentationDevice) SetVolumeAdjustMagnitude(volumeAdjustMagnitude float32) {
	if volumeAdjustMagnitude < 0.0 {
		volumeAdjustMagnitude = 0.0
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.volumeAdjustMagnitude = volumeAdjustMagnitude
}

func (d *AudioAugmentationDevice) GetVolumeAdjustMagnitude() float32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.volumeAdjustMagnitude
}

// --------------------------------------------------------------------------------

// An audioAugmentationFunction produces samples for the same channel as sourceFrame.
//
// The wrapped source may reuse or share sourceFrame, so functions that change
// samples must return new memory instead of writing in place.
type audioAugmentationFunction func(sourceFrame frame.PCMFrame) frame.PCMFrame

func (d *AudioAugmentationDevice) volumeAdjust(sourceFrame frame.PCMFrame) frame.PCMFrame {
	magnitude := d.GetVolumeAdjustMagnitude()
	if magnitude == 1.0 {
		return sourceFrame
	}

	adjusted := make(frame.PCMFrame, len(sourceFrame))
	for i, v := range sourceFrame {
		adjusted[i] = v * magnitude
	}
	return adjusted
}
