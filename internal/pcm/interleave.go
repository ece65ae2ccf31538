package pcm

import (
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
)

// Combine a left and right channel into one stereo stream,
// such that out[2k] = left[k] and out[2k+1] = right[k].
//
// If the channels differ in length, the output covers only the shorter one:
// len(out) == 2*min(len(left), len(right)). Trailing samples of the longer channel
// have no partner and are dropped.
func Interleave(left, right frame.PCMFrame) frame.PCMFrame {
	n := min(len(left), len(right))
	interleaved := make(frame.PCMFrame, 2*n)
	for i := range n {
		interleaved[2*i] = left[i]
		interleaved[2*i+1] = right[i]
	}
	return interleaved
}

// Split an interleaved stream with numChannels channels into left and right.
//
// Mono input is duplicated onto both channels. For more than two channels only the
// first two are kept. A trailing partial frame is ignored.
func Deinterleave(interleaved frame.PCMFrame, numChannels int) (left, right frame.PCMFrame) {
	if numChannels <= 0 {
		return frame.PCMFrame{}, frame.PCMFrame{}
	}

	numFrames := len(interleaved) / numChannels
	left = make(frame.PCMFrame, numFrames)
	right = make(frame.PCMFrame, numFrames)
	for i := range numFrames {
		left[i] = interleaved[i*numChannels]
		if numChannels == 1 {
			right[i] = left[i]
		} else {
			right[i] = interleaved[i*numChannels+1]
		}
	}
	return left, right
}
