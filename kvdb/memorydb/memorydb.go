// Package memorydb implements the key-value database layer based on an
// in-memory ordered tree.
package memorydb

import (
	"bytes"
	"errors"
	"sync"

	rbt "github.com/emirpasic/gods/trees/redblacktree"

	"github.com/chronos-foundation/chronos-base/kvdb"
)

var (
	errClosed = errors.New("database closed")
)

// Database is an ephemeral key-value store. Apart from basic data storage
// functionality it also supports batch writes and iterating over the keyspace in
// binary-alphabetical order.
type Database struct {
	tree *rbt.Tree

	onDrop func()

	lock sync.RWMutex
}

// New returns an ordered-tree-backed store with all the required database
// interface methods implemented.
func New() *Database {
	return &Database{
		tree: rbt.NewWithStringComparator(),
	}
}

// NewWithDrop is the same as New, but defines onDrop callback.
func NewWithDrop(drop func()) *Database {
	db := New()
	db.onDrop = drop
	return db
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}

// Close deallocates the internal tree.
func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.tree = nil
	return nil
}

// Drop whole database.
func (db *Database) Drop() {
	if db.tree != nil {
		panic("Close database first!")
	}
	if db.onDrop != nil {
		db.onDrop()
	}
}

// Has retrieves if a key is present in the key-value store.
func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.tree == nil {
		return false, errClosed
	}
	_, ok := db.tree.Get(string(key))
	return ok, nil
}

// Get retrieves the given key if it's present in the key-value store.
func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.tree == nil {
		return nil, errClosed
	}
	if entry, ok := db.tree.Get(string(key)); ok {
		return copyBytes(entry.([]byte)), nil
	}
	return nil, nil
}

// Put inserts the given value into the key-value store.
func (db *Database) Put(key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.tree == nil {
		return errClosed
	}
	if key == nil || value == nil {
		return errors.New("memorydb: key or value is nil")
	}
	db.tree.Put(string(key), copyBytes(value))
	return nil
}

// Delete removes the key from the key-value store.
func (db *Database) Delete(key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.tree == nil {
		return errClosed
	}
	db.tree.Remove(string(key))
	return nil
}

// Len returns the number of stored pairs.
func (db *Database) Len() int {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.tree == nil {
		return 0
	}
	return db.tree.Size()
}

// NewIterator creates a binary-alphabetical iterator over a subset
// of database content with a particular key prefix, starting at a particular
// initial key (or after, if it does not exist).
// The iterator holds a frozen copy of the matching pairs.
func (db *Database) NewIterator(prefix []byte, start []byte) kvdb.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	it := &iterator{}
	if db.tree == nil {
		it.err = errClosed
		return it
	}

	first := append(copyBytes(prefix), start...)
	treeIt := db.tree.Iterator()
	for treeIt.Next() {
		key := []byte(treeIt.Key().(string))
		if !bytes.HasPrefix(key, prefix) {
			// ordered iteration: any non-matching key past the prefix ends the range
			if bytes.Compare(key, prefix) > 0 {
				break
			}
			continue
		}
		if bytes.Compare(key, first) < 0 {
			continue
		}
		it.keys = append(it.keys, key)
		it.values = append(it.values, copyBytes(treeIt.Value().([]byte)))
	}
	return it
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
func (db *Database) NewBatch() kvdb.Batch {
	return &batch{
		db: db,
	}
}

/*
 * Iterator
 */

type iterator struct {
	keys   [][]byte
	values [][]byte
	pos    int
	err    error
}

func (it *iterator) Next() bool {
	if it.pos >= len(it.keys) {
		return false
	}
	it.pos++
	return it.pos <= len(it.keys)
}

func (it *iterator) Error() error {
	return it.err
}

func (it *iterator) Key() []byte {
	if it.pos == 0 || it.pos > len(it.keys) {
		return nil
	}
	return it.keys[it.pos-1]
}

func (it *iterator) Value() []byte {
	if it.pos == 0 || it.pos > len(it.values) {
		return nil
	}
	return it.values[it.pos-1]
}

func (it *iterator) Release() {
	*it = iterator{}
}

/*
 * Batch
 */

type kv struct {
	key    []byte
	value  []byte
	delete bool
}

// batch is a write-only store that commits changes to its host database when
// Write is called. A batch cannot be used concurrently.
type batch struct {
	db   *Database
	ops  []kv
	size int
}

// Put inserts the given value into the batch for later committing.
func (b *batch) Put(key, value []byte) error {
	b.ops = append(b.ops, kv{copyBytes(key), copyBytes(value), false})
	b.size += len(key) + len(value)
	return nil
}

// Delete inserts the key removal into the batch for later committing.
func (b *batch) Delete(key []byte) error {
	b.ops = append(b.ops, kv{copyBytes(key), nil, true})
	b.size += len(key)
	return nil
}

// ValueSize retrieves the amount of data queued up for writing.
func (b *batch) ValueSize() int {
	return b.size
}

// Write flushes any accumulated data to the host database.
func (b *batch) Write() error {
	for _, op := range b.ops {
		var err error
		if op.delete {
			err = b.db.Delete(op.key)
		} else {
			err = b.db.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Reset resets the batch for reuse.
func (b *batch) Reset() {
	b.ops = b.ops[:0]
	b.size = 0
}

// Replay replays the batch contents.
func (b *batch) Replay(w kvdb.Writer) error {
	for _, op := range b.ops {
		var err error
		if op.delete {
			err = w.Delete(op.key)
		} else {
			err = w.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
