package reputation

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"

	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/inter/ident"
)

func TestProfileSerialization(t *testing.T) {
	e := New(LiteConfig(), zap.NewNop())
	id := ident.FakeID(42)
	src := ident.FakeID(43)

	for i := int64(0); i < 25; i++ {
		at := t0 + i*60
		_, err := e.RecordEvent(id, BlockProduced, at, at, uint64(i), src, hash.FakeHash(i))
		require.NoError(t, err)
	}
	require.NoError(t, e.Slash(id, Equivocation, t0+2000, 0, hash.Zero))

	p, ok := e.Profile(id)
	require.True(t, ok)

	raw, err := rlp.EncodeToBytes(p)
	require.NoError(t, err)

	restored := new(Profile)
	require.NoError(t, rlp.DecodeBytes(raw, restored))

	assert.Equal(t, p.Dims, restored.Dims)
	assert.Equal(t, p.CreatedAt, restored.CreatedAt)
	assert.Equal(t, p.TotalEvents, restored.TotalEvents)
	assert.True(t, restored.Penalized)
	assert.Equal(t, p.PenaltyUntil, restored.PenaltyUntil)
	assert.Equal(t, p.History, restored.History)
	// Aggregate is recomputed on decode.
	assert.InDelta(t, p.Aggregate, restored.Aggregate, 1e-12)
}
