package accumulator

import (
	"sync"
	"testing"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushKeepsArrivalOrder(t *testing.T) {
	acc := New()
	for i := 0; i < 5; i++ {
		require.True(t, acc.Push(frame.ChannelLeft, frame.PCMFrame{float32(i)}))
		require.True(t, acc.Push(frame.ChannelRight, frame.PCMFrame{float32(-i)}))
	}

	left, right := acc.Seal()
	require.Len(t, left, 5)
	require.Len(t, right, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, float32(i), left[i][0])
		assert.Equal(t, float32(-i), right[i][0])
	}
}

func TestPushCopiesBlock(t *testing.T) {
	acc := New()
	block := frame.PCMFrame{0.25, 0.5}
	acc.Push(frame.ChannelLeft, block)
	block[0] = 1

	left, _ := acc.Seal()
	assert.Equal(t, float32(0.25), left[0][0])
}

func TestPushInvalidChannelIsDropped(t *testing.T) {
	acc := New()
	assert.False(t, acc.Push(frame.Channel(2), frame.PCMFrame{1}))
	assert.False(t, acc.Push(frame.Channel(-1), frame.PCMFrame{1}))

	stats := acc.Stats()
	assert.Equal(t, 2, stats.DroppedBlocks)
	assert.Equal(t, [frame.NumChannels]int{0, 0}, stats.Blocks)
}

func TestPushAfterSealIsDropped(t *testing.T) {
	acc := New()
	acc.Push(frame.ChannelLeft, frame.PCMFrame{1, 2})
	left, _ := acc.Seal()
	require.Len(t, left, 1)

	assert.False(t, acc.Push(frame.ChannelLeft, frame.PCMFrame{3}))

	left, right := acc.Seal()
	assert.Empty(t, left)
	assert.Empty(t, right)
	assert.Equal(t, 1, acc.Stats().DroppedBlocks)
}

func TestClearResetsStoresAndUnseals(t *testing.T) {
	acc := New()
	acc.Push(frame.ChannelLeft, frame.PCMFrame{1, 2, 3})
	acc.Seal()
	acc.Clear()

	assert.Equal(t, Stats{}, acc.Stats())
	assert.True(t, acc.Push(frame.ChannelRight, frame.PCMFrame{4}))

	left, right := acc.Seal()
	assert.Empty(t, left)
	require.Len(t, right, 1)
}

func TestStatsCountsActualBlockLengths(t *testing.T) {
	acc := New()
	acc.Push(frame.ChannelLeft, make(frame.PCMFrame, 4096))
	acc.Push(frame.ChannelLeft, make(frame.PCMFrame, 100))
	acc.Push(frame.ChannelRight, make(frame.PCMFrame, 4096))

	stats := acc.Stats()
	assert.Equal(t, [frame.NumChannels]int{2, 1}, stats.Blocks)
	assert.Equal(t, [frame.NumChannels]int{4196, 4096}, stats.Samples)

	left, _ := acc.Seal()
	assert.Equal(t, 4196, left.NumSamples())
}

func TestConcurrentPushAndSeal(t *testing.T) {
	acc := New()
	const pushes = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < pushes; i++ {
			acc.Push(frame.ChannelLeft, frame.PCMFrame{float32(i)})
		}
	}()

	left, _ := acc.Seal()
	wg.Wait()

	stats := acc.Stats()
	assert.Equal(t, pushes, len(left)+stats.DroppedBlocks)
	for i, block := range left {
		assert.Equal(t, float32(i), block[0])
	}
}
