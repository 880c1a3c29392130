package memorydb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicOps(t *testing.T) {
	db := New()
	defer db.Close()

	ok, err := db.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)

	val, err := db.Get([]byte("a"))
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, db.Put([]byte("a"), []byte("1")))
	require.NoError(t, db.Put([]byte("b"), []byte("2")))

	ok, err = db.Has([]byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)

	val, err = db.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), val)
	assert.Equal(t, 2, db.Len())

	require.NoError(t, db.Delete([]byte("a")))
	ok, err = db.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, db.Len())
}

func TestValueIsolation(t *testing.T) {
	db := New()
	defer db.Close()

	val := []byte("mutable")
	require.NoError(t, db.Put([]byte("k"), val))
	val[0] = 'X'

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("mutable"), got)

	got[0] = 'Y'
	again, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("mutable"), again)
}

func TestIterator(t *testing.T) {
	db := New()
	defer db.Close()

	pairs := map[string]string{
		"aa1": "v1",
		"aa2": "v2",
		"aa3": "v3",
		"ab1": "v4",
		"zz1": "v5",
	}
	for k, v := range pairs {
		require.NoError(t, db.Put([]byte(k), []byte(v)))
	}

	t.Run("full range is ordered", func(t *testing.T) {
		it := db.NewIterator(nil, nil)
		defer it.Release()

		var keys []string
		for it.Next() {
			keys = append(keys, string(it.Key()))
		}
		require.NoError(t, it.Error())
		assert.Equal(t, []string{"aa1", "aa2", "aa3", "ab1", "zz1"}, keys)
	})

	t.Run("prefix", func(t *testing.T) {
		it := db.NewIterator([]byte("aa"), nil)
		defer it.Release()

		var keys []string
		for it.Next() {
			keys = append(keys, string(it.Key()))
		}
		assert.Equal(t, []string{"aa1", "aa2", "aa3"}, keys)
	})

	t.Run("prefix and start", func(t *testing.T) {
		it := db.NewIterator([]byte("aa"), []byte("2"))
		defer it.Release()

		var keys []string
		for it.Next() {
			keys = append(keys, string(it.Key()))
		}
		assert.Equal(t, []string{"aa2", "aa3"}, keys)
	})

	t.Run("frozen view", func(t *testing.T) {
		it := db.NewIterator([]byte("aa"), nil)
		defer it.Release()

		require.NoError(t, db.Put([]byte("aa0"), []byte("late")))
		defer db.Delete([]byte("aa0"))

		var keys []string
		for it.Next() {
			keys = append(keys, string(it.Key()))
		}
		assert.Equal(t, []string{"aa1", "aa2", "aa3"}, keys)
	})
}

func TestBatch(t *testing.T) {
	db := New()
	defer db.Close()

	require.NoError(t, db.Put([]byte("doomed"), []byte("x")))

	b := db.NewBatch()
	require.NoError(t, b.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, b.Put([]byte("k2"), []byte("v2")))
	require.NoError(t, b.Delete([]byte("doomed")))
	assert.True(t, b.ValueSize() > 0)

	// nothing is visible until Write
	ok, err := db.Has([]byte("k1"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Write())

	val, err := db.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
	ok, err = db.Has([]byte("doomed"))
	require.NoError(t, err)
	assert.False(t, ok)

	t.Run("replay", func(t *testing.T) {
		target := New()
		defer target.Close()
		require.NoError(t, target.Put([]byte("doomed"), []byte("x")))

		require.NoError(t, b.Replay(target))

		val, err := target.Get([]byte("k2"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), val)
		ok, err := target.Has([]byte("doomed"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	b.Reset()
	assert.Equal(t, 0, b.ValueSize())
}

func TestClosed(t *testing.T) {
	dropped := false
	db := NewWithDrop(func() { dropped = true })

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	require.NoError(t, db.Close())

	_, err := db.Get([]byte("k"))
	assert.Error(t, err)
	assert.Error(t, db.Put([]byte("k"), []byte("v")))

	db.Drop()
	assert.True(t, dropped)
}
