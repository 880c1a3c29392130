package table

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/status-im/keycard-go/hexutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronos-foundation/chronos-base/kvdb"
	"github.com/chronos-foundation/chronos-base/kvdb/leveldb"
	"github.com/chronos-foundation/chronos-base/kvdb/memorydb"
)

func tempLevelDB(name string) *leveldb.Database {
	dir, err := os.MkdirTemp("", "table-test"+name)
	if err != nil {
		panic(fmt.Sprintf("can't create temporary directory: %v", err))
	}

	drop := func() {
		err := os.RemoveAll(dir)
		if err != nil {
			panic(err)
		}
	}

	diskdb, err := leveldb.New(dir, 16, 0, nil, drop)
	if err != nil {
		panic(fmt.Sprintf("can't create temporary database: %v", err))
	}
	return diskdb
}

func TestTable(t *testing.T) {
	prefix0 := map[string][]byte{
		"00": hexutils.HexToBytes("00"),
		"01": hexutils.HexToBytes("0001"),
		"02": hexutils.HexToBytes("000102"),
		"03": hexutils.HexToBytes("00010203"),
	}
	prefix1 := map[string][]byte{
		"10": hexutils.HexToBytes("0001020304"),
	}
	testData := join(prefix0, prefix1)

	// open raw databases
	leveldb1 := tempLevelDB("1")
	defer leveldb1.Drop()
	defer leveldb1.Close()

	for name, db := range map[string]kvdb.Store{
		"memory":  memorydb.New(),
		"leveldb": leveldb1,
	} {
		t.Run(name, func(t *testing.T) {
			assertar := assert.New(t)

			// tables
			t1 := New(db, []byte("t1"))
			tables := map[string]kvdb.Store{
				"/t1":      t1,
				"/x/t1/t2": New(db, []byte("x")).NewTable([]byte("t1t2")),
				"/t2":      New(db, []byte("t2")),
			}

			// write
			for name, t := range tables {
				for k, v := range testData {
					err := t.Put([]byte(k), v)
					if !assertar.NoError(err, name) {
						return
					}
				}
			}

			// read
			for name, t := range tables {

				for pref, count := range map[string]int{
					"0": len(prefix0),
					"1": len(prefix1),
					"":  len(prefix0) + len(prefix1),
				} {
					got := 0
					var prevKey []byte

					it := t.NewIterator([]byte(pref), nil)
					defer it.Release()
					for it.Next() {
						if prevKey == nil {
							prevKey = common.CopyBytes(it.Key())
						} else {
							assertar.Equal(1, bytes.Compare(it.Key(), prevKey))
						}
						got++
						assertar.Equal(
							testData[string(it.Key())],
							it.Value(),
							name+": "+string(it.Key()),
						)
					}

					if !assertar.NoError(it.Error()) {
						return
					}

					if !assertar.Equal(count, got) {
						return
					}
				}
			}
		})
	}
}

func TestBatchReplay(t *testing.T) {
	db := memorydb.New()
	tbl := New(db, []byte("p"))

	b := tbl.NewBatch()
	require.NoError(t, b.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, b.Put([]byte("k2"), []byte("v2")))
	require.NoError(t, b.Delete([]byte("k2")))
	require.NoError(t, b.Write())

	// keys land in the underlying db with the table prefix
	val, err := db.Get([]byte("pk1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), val)

	// replay strips the prefix back off
	target := memorydb.New()
	require.NoError(t, b.Replay(target))
	val, err = target.Get([]byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), val)
	ok, err := target.Has([]byte("k2"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMigrateTables(t *testing.T) {
	type store struct {
		Events kvdb.Store `table:"e"`
		Scores kvdb.Store `table:"s"`
		Skip   kvdb.Store `table:"-"`
	}

	db := memorydb.New()
	var s store
	MigrateTables(&s, db)

	require.NotNil(t, s.Events)
	require.NotNil(t, s.Scores)
	require.Nil(t, s.Skip)

	require.NoError(t, s.Events.Put([]byte("k"), []byte("ev")))
	require.NoError(t, s.Scores.Put([]byte("k"), []byte("sc")))

	val, err := db.Get([]byte("ek"))
	require.NoError(t, err)
	require.Equal(t, []byte("ev"), val)
	val, err = db.Get([]byte("sk"))
	require.NoError(t, err)
	require.Equal(t, []byte("sc"), val)

	MigrateTables(&s, nil)
	require.Nil(t, s.Events)
}

func join(aa ...map[string][]byte) map[string][]byte {
	res := make(map[string][]byte)
	for _, a := range aa {
		for k, v := range a {
			res[k] = v
		}
	}

	return res
}
