package pcm

import (
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
)

// Concatenate the blocks of one channel, in order, into a single contiguous frame.
//
// Blocks may differ in length (e.g. a short final block), so the output length is
// the sum of the actual block lengths. An empty list yields an empty, non-nil frame.
func Merge(blocks []frame.PCMFrame) frame.PCMFrame {
	length := 0
	for _, block := range blocks {
		length += len(block)
	}

	merged := make(frame.PCMFrame, length)
	offset := 0
	for _, block := range blocks {
		offset += copy(merged[offset:], block)
	}
	return merged
}
