package kvdb

import (
	"errors"
	"io"
)

// IdealBatchSize defines the size of the data batches should ideally add in one
// write.
const IdealBatchSize = 100 * 1024

var (
	// ErrUnsupportedOp is returned by wrappers which cannot pass the
	// operation to the underlying database.
	ErrUnsupportedOp = errors.New("operation is unsupported")
)

// Reader wraps the Has and Get methods of a backing data store.
// Get returns (nil, nil) when the key is absent.
type Reader interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
}

// Writer wraps the Put and Delete methods of a backing data store.
type Writer interface {
	Put(key []byte, value []byte) error
	Delete(key []byte) error
}

// Iterator iterates over a database's key/value pairs in ascending key order.
type Iterator interface {
	// Next moves the iterator to the next key/value pair. It returns false
	// when the iterator is exhausted.
	Next() bool
	// Error returns any accumulated error.
	Error() error
	// Key returns the key of the current key/value pair, valid until Next.
	Key() []byte
	// Value returns the value of the current key/value pair, valid until Next.
	Value() []byte
	// Release releases associated resources.
	Release()
}

// Iteratee wraps the NewIterator method of a backing data store.
type Iteratee interface {
	// NewIterator creates a binary-alphabetical iterator over a subset of
	// database content with a particular key prefix, starting at a
	// particular initial key within the prefix (or after, if it does not
	// exist).
	NewIterator(prefix []byte, start []byte) Iterator
}

// Batch is a write-only database that commits changes to its host database
// when Write is called. A batch cannot be used concurrently.
type Batch interface {
	Writer

	// ValueSize retrieves the amount of data queued up for writing.
	ValueSize() int

	// Write flushes any accumulated data to disk.
	Write() error

	// Reset resets the batch for reuse.
	Reset()

	// Replay replays the batch contents.
	Replay(w Writer) error
}

// Batcher wraps the NewBatch method of a backing data store.
type Batcher interface {
	// NewBatch creates a write-only database that buffers changes to its
	// host db until a final write is called.
	NewBatch() Batch
}

// Store contains all the methods required to allow handling different
// key-value data stores backing the high level database.
type Store interface {
	Reader
	Writer
	Batcher
	Iteratee
	io.Closer
}

// Droper is able to delete the DB.
type Droper interface {
	Drop()
}

// DropableStore is Droper + Store
type DropableStore interface {
	Store
	Droper
}
