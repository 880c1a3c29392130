package finality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/inter/idx"
	"github.com/chronos-foundation/chronos-base/vdf"
)

func TestExtendChain(t *testing.T) {
	genesis := hash.FakeHash(1)
	tracker := NewTracker(genesis)

	tip := genesis
	for i := 1; i <= 3; i++ {
		p, err := vdf.Compute(tip, 100)
		require.NoError(t, err)

		s, err := tracker.Extend(p, int64(i))
		require.NoError(t, err)
		assert.Equal(t, idx.Depth(i), s.Depth)
		assert.Equal(t, p.Output, s.Tip)
		assert.Equal(t, int64(i), s.TipTime)

		tip = p.Output
	}
}

func TestExtendRejections(t *testing.T) {
	genesis := hash.FakeHash(2)
	tracker := NewTracker(genesis)

	t.Run("nil proof", func(t *testing.T) {
		_, err := tracker.Extend(nil, 1)
		assert.ErrorIs(t, err, vdf.ErrMalformedProof)
	})

	t.Run("wrong input", func(t *testing.T) {
		p, err := vdf.Compute(hash.FakeHash(3), 100)
		require.NoError(t, err)

		_, err = tracker.Extend(p, 1)
		assert.ErrorIs(t, err, ErrTipMismatch)
	})

	t.Run("tampered proof", func(t *testing.T) {
		p, err := vdf.Compute(genesis, 100)
		require.NoError(t, err)
		p.Output[0] ^= 0x01
		p.Checkpoints[len(p.Checkpoints)-1] = p.Output

		before := tracker.State()
		_, err = tracker.Extend(p, 1)
		assert.Error(t, err)
		assert.Equal(t, before, tracker.State())
	})
}

func TestLevelThresholds(t *testing.T) {
	assert.Equal(t, None, LevelOf(0))
	assert.Equal(t, Soft, LevelOf(1))
	assert.Equal(t, Soft, LevelOf(99))
	assert.Equal(t, Medium, LevelOf(100))
	assert.Equal(t, Medium, LevelOf(999))
	assert.Equal(t, Hard, LevelOf(1000))
	assert.Equal(t, Hard, LevelOf(1000000))
}

func TestForkChoice(t *testing.T) {
	deeper := State{Depth: 10, Tip: hash.FakeHash(4), TipTime: 100}
	shallower := State{Depth: 9, Tip: hash.FakeHash(5), TipTime: 1}
	assert.True(t, Compare(deeper, shallower) > 0)
	assert.True(t, Compare(shallower, deeper) < 0)

	earlier := State{Depth: 10, Tip: hash.FakeHash(6), TipTime: 50}
	later := State{Depth: 10, Tip: hash.FakeHash(7), TipTime: 60}
	assert.True(t, Compare(earlier, later) > 0)

	smaller := State{Depth: 10, TipTime: 50, Tip: hash.HexToHash("0x0100000000000000000000000000000000000000000000000000000000000000")}
	bigger := State{Depth: 10, TipTime: 50, Tip: hash.HexToHash("0x0200000000000000000000000000000000000000000000000000000000000000")}
	assert.True(t, Compare(smaller, bigger) > 0)
	assert.Equal(t, 0, Compare(smaller, smaller))

	assert.Equal(t, deeper, Best([]State{shallower, deeper, later}))
	assert.Equal(t, earlier, Best([]State{later, earlier}))
}
