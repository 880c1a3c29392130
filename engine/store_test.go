package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronos-foundation/chronos-base/finality"
	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/inter/ident"
	"github.com/chronos-foundation/chronos-base/inter/idx"
	"github.com/chronos-foundation/chronos-base/kvdb/memorydb"
	"github.com/chronos-foundation/chronos-base/trustgraph"
)

func TestStoreFinality(t *testing.T) {
	s := NewStore(memorydb.New())

	_, ok, err := s.GetFinality()
	require.NoError(t, err)
	assert.False(t, ok)

	want := finality.State{
		Depth:   idx.Depth(42),
		Tip:     hash.FakeHash(1),
		TipTime: t0,
	}
	require.NoError(t, s.SetFinality(want))

	got, ok, err := s.GetFinality()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestStoreEdges(t *testing.T) {
	s := NewStore(memorydb.New())

	a := ident.FakeID(1)
	b := ident.FakeID(2)
	c := ident.FakeID(3)

	for _, e := range []trustgraph.Edge{
		{Voucher: a, Vouchee: b, Time: uint64(t0)},
		{Voucher: b, Vouchee: c, Time: uint64(t0 + 1)},
		{Voucher: c, Vouchee: a, Time: uint64(t0 + 2)},
	} {
		require.NoError(t, s.SetEdge(e))
	}

	var edges []trustgraph.Edge
	require.NoError(t, s.ForEachEdge(func(e trustgraph.Edge) {
		edges = append(edges, e)
	}))
	assert.Len(t, edges, 3)

	// dropping b removes both edges touching it
	require.NoError(t, s.DelEdgesOf(b))

	edges = nil
	require.NoError(t, s.ForEachEdge(func(e trustgraph.Edge) {
		edges = append(edges, e)
	}))
	require.Len(t, edges, 1)
	assert.Equal(t, c, edges[0].Voucher)
	assert.Equal(t, a, edges[0].Vouchee)
}

func TestStoreHeartbeats(t *testing.T) {
	s := NewStore(memorydb.New())

	id := ident.FakeID(1)
	want := heartbeatState{
		Seq:         idx.Seq(7),
		Time:        t0,
		FinalityRef: idx.Depth(3),
	}
	require.NoError(t, s.SetHeartbeat(id, want))

	seen := 0
	require.NoError(t, s.ForEachHeartbeat(func(got ident.ID, hb heartbeatState) {
		seen++
		assert.Equal(t, id, got)
		assert.Equal(t, want, hb)
	}))
	assert.Equal(t, 1, seen)

	require.NoError(t, s.DelHeartbeat(id))
	seen = 0
	require.NoError(t, s.ForEachHeartbeat(func(ident.ID, heartbeatState) { seen++ }))
	assert.Equal(t, 0, seen)
}
