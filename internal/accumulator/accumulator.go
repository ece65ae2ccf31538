package accumulator

import (
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
)

// The blocks of a single channel, in arrival order.
//
// Blocks are kept as a list rather than appended into one growing sample slice,
// so a push never copies previously captured audio.
type ChannelStore []frame.PCMFrame

// Total number of samples held by the store, i.e. the sum of actual block lengths.
func (s ChannelStore) NumSamples() int {
	total := 0
	for _, block := range s {
		total += len(block)
	}
	return total
}

// Stats describes the content of an Accumulator.
type Stats struct {
	Blocks        [frame.NumChannels]int
	Samples       [frame.NumChannels]int
	DroppedBlocks int
}

// An Accumulator holds the left and right ChannelStores of one recording session.
//
// Push is safe to call from a source callback goroutine while another goroutine
// calls Seal. A push that loses the race against Seal is dropped as a whole.
type Accumulator struct {
	mu     sync.Mutex
	sealed bool
	stores [frame.NumChannels]ChannelStore
	stats  Stats
}

func New() *Accumulator {
	return &Accumulator{}
}

// Append a copy of block to the store of the given channel.
//
// Returns false if the block was dropped, either because the accumulator is sealed
// or because the channel is not one of the captured channels.
func (a *Accumulator) Push(channel frame.Channel, block frame.PCMFrame) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sealed || !channel.Valid() {
		a.stats.DroppedBlocks += 1
		return false
	}

	// Sources are free to reuse their buffers once the callback returns
	owned := make(frame.PCMFrame, len(block))
	copy(owned, block)

	a.stores[channel] = append(a.stores[channel], owned)
	a.stats.Blocks[channel] += 1
	a.stats.Samples[channel] += len(owned)
	return true
}

// Empty both stores and accept pushes again.
func (a *Accumulator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sealed = false
	a.stores = [frame.NumChannels]ChannelStore{}
	a.stats = Stats{}
}

// Seal the accumulator and hand over its stores.
//
// Once sealed, every subsequent Push is dropped until Clear is called.
// The returned stores are no longer referenced by the accumulator.
func (a *Accumulator) Seal() (left ChannelStore, right ChannelStore) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sealed = true
	left, right = a.stores[frame.ChannelLeft], a.stores[frame.ChannelRight]
	a.stores = [frame.NumChannels]ChannelStore{}
	return left, right
}

// Stats are kept across Seal, so they still describe the sealed session.
func (a *Accumulator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
