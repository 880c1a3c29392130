package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronos-foundation/chronos-base/common/bigendian"
	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/inter/ident"
	"github.com/chronos-foundation/chronos-base/reputation"
)

func TestSnapshotRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reputation.snap")

	e := newEngine(t)
	a, _ := newIdentity(1)
	b, _ := newIdentity(2)
	boost(t, e, a, t0)
	boost(t, e, b, t0)
	require.NoError(t, e.rep.Slash(b, reputation.Equivocation, t0, 0, hash.Zero))

	require.NoError(t, e.SaveSnapshot(path))

	restored := newEngine(t)
	require.NoError(t, restored.LoadSnapshot(path))

	for _, id := range []struct {
		name string
		id   ident.ID
	}{{"clean", a}, {"penalized", b}} {
		want, ok := e.Profile(id.id)
		require.True(t, ok, id.name)
		got, ok := restored.Profile(id.id)
		require.True(t, ok, id.name)

		assert.Equal(t, want.Dims, got.Dims, id.name)
		assert.Equal(t, want.Penalized, got.Penalized, id.name)
		assert.Equal(t, want.TotalEvents, got.TotalEvents, id.name)
		assert.InDelta(t, want.Aggregate, got.Aggregate, 1e-12, id.name)
	}
}

func TestSnapshotLoadFailures(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		e := newEngine(t)
		assert.Error(t, e.LoadSnapshot(filepath.Join(dir, "nope.snap")))
	})

	t.Run("truncated header", func(t *testing.T) {
		path := filepath.Join(dir, "short.snap")
		require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))
		e := newEngine(t)
		assert.ErrorIs(t, e.LoadSnapshot(path), ErrSnapshotCorrupt)
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := filepath.Join(dir, "future.snap")
		buf := append(bigendian.Uint32ToBytes(99), bigendian.Uint32ToBytes(0)...)
		require.NoError(t, os.WriteFile(path, buf, 0o644))
		e := newEngine(t)
		assert.ErrorIs(t, e.LoadSnapshot(path), ErrSnapshotVersion)
	})

	t.Run("absurd count header", func(t *testing.T) {
		path := filepath.Join(dir, "count.snap")
		buf := append(bigendian.Uint32ToBytes(snapshotVersion), bigendian.Uint32ToBytes(0xFFFFFFFF)...)
		require.NoError(t, os.WriteFile(path, buf, 0o644))
		e := newEngine(t)
		assert.ErrorIs(t, e.LoadSnapshot(path), ErrSnapshotCorrupt)
	})

	t.Run("truncated body leaves state untouched", func(t *testing.T) {
		path := filepath.Join(dir, "torn.snap")

		full := newEngine(t)
		a, _ := newIdentity(1)
		boost(t, full, a, t0)
		require.NoError(t, full.SaveSnapshot(path))

		buf, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, buf[:len(buf)-10], 0o644))

		e := newEngine(t)
		assert.ErrorIs(t, e.LoadSnapshot(path), ErrSnapshotCorrupt)
		_, ok := e.Profile(a)
		assert.False(t, ok)
	})

	t.Run("slash survives save and load", func(t *testing.T) {
		path := filepath.Join(dir, "penalty.snap")

		e := newEngine(t)
		a, _ := newIdentity(1)
		boost(t, e, a, t0)
		require.Greater(t, e.Score(a, t0), 0.0)
		require.NoError(t, e.rep.Slash(a, reputation.Equivocation, t0, 0, hash.Zero))
		require.NoError(t, e.SaveSnapshot(path))

		restored := newEngine(t)
		require.NoError(t, restored.LoadSnapshot(path))
		assert.Equal(t, 0.0, restored.Score(a, t0))
	})
}
