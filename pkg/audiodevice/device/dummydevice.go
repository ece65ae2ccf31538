package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
)

// An AudioSourceDevice driven entirely by its caller.
//
// Access requests stay pending until Grant or Deny is called (unless the device
// grants automatically), and blocks are only produced by Emit.
// A minimal example of the architecture of an AudioSourceDevice, useful in testing.
type DummyAudioSourceDevice struct {
	properties audiodevice.DeviceProperties

	mu        sync.Mutex
	autoGrant bool
	callback  func(frame.SampleBlock)
	pending   []chan error
	requests  []audiodevice.CaptureConfig
	detaches  int
}

func NewDummyAudioSourceDevice(properties audiodevice.DeviceProperties) *DummyAudioSourceDevice {
	return &DummyAudioSourceDevice{
		properties: properties,
	}
}

// Grant every future access request immediately.
func (d *DummyAudioSourceDevice) GrantAutomatically() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.autoGrant = true
}

func (d *DummyAudioSourceDevice) RequestAccess(_ context.Context, cfg audiodevice.CaptureConfig) <-chan error {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := make(chan error, 1)
	d.requests = append(d.requests, cfg)
	if d.autoGrant {
		result <- nil
	} else {
		d.pending = append(d.pending, result)
	}
	return result
}

// Resolve the oldest pending access request as granted.
// Returns false if no request was pending.
func (d *DummyAudioSourceDevice) Grant() bool {
	return d.resolve(nil)
}

// Resolve the oldest pending access request as denied.
// Returns false if no request was pending.
func (d *DummyAudioSourceDevice) Deny() bool {
	return d.resolve(fmt.Errorf("%w: dummy device", audiodevice.ErrAccessDenied))
}

func (d *DummyAudioSourceDevice) resolve(err error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) == 0 {
		return false
	}
	result := d.pending[0]
	d.pending = d.pending[1:]
	result <- err
	return true
}

func (d *DummyAudioSourceDevice) OnBlock(callback func(frame.SampleBlock)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = callback
}

// Deliver a block to the registered callback.
// Returns false if no callback is registered (never attached, or detached).
//
// The callback runs while the device lock is held, so once Detach returns no
// Emit can still be delivering.
func (d *DummyAudioSourceDevice) Emit(block frame.SampleBlock) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.callback == nil {
		return false
	}
	d.callback(block)
	return true
}

// Deliver one tick: a left block followed by a right block.
func (d *DummyAudioSourceDevice) EmitStereo(left, right frame.PCMFrame) bool {
	okLeft := d.Emit(frame.SampleBlock{Channel: frame.ChannelLeft, Samples: left})
	okRight := d.Emit(frame.SampleBlock{Channel: frame.ChannelRight, Samples: right})
	return okLeft && okRight
}

func (d *DummyAudioSourceDevice) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = nil
	d.detaches += 1
}

func (d *DummyAudioSourceDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.properties
}

// --------------------------------------------------------------------------------
// Inspection, for tests

func (d *DummyAudioSourceDevice) Attached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.callback != nil
}

func (d *DummyAudioSourceDevice) Detaches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detaches
}

func (d *DummyAudioSourceDevice) PendingRequests() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// The configurations passed to RequestAccess, in call order.
func (d *DummyAudioSourceDevice) Requests() []audiodevice.CaptureConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]audiodevice.CaptureConfig(nil), d.requests...)
}
