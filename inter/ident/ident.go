package ident

import (
	"bytes"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// Length is the expected length of an identity key.
	Length = 32
)

// ID is the 32 byte public key that addresses a principal.
type ID [Length]byte

type IDs []ID

type IDSet map[ID]struct{}

// BytesToID sets b to id.
// If b is larger than len(id), b will be cropped from the left.
func BytesToID(b []byte) ID {
	var id ID
	if len(b) > len(id) {
		b = b[len(b)-Length:]
	}
	copy(id[Length-len(b):], b)
	return id
}

// HexToID sets byte representation of s to id.
func HexToID(s string) ID { return BytesToID(hexutil.MustDecode(s)) }

// Bytes gets the byte representation of the underlying key.
func (id ID) Bytes() []byte { return id[:] }

// Hex converts an identity key to a hex string.
func (id ID) Hex() string { return hexutil.Encode(id[:]) }

// TerminalString formats a short string for console output during logging.
func (id ID) TerminalString() string {
	return fmt.Sprintf("%x…%x", id[:3], id[29:])
}

func (id ID) String() string {
	return id.Hex()
}

// Less is a deterministic total order over identity keys.
func (id ID) Less(other ID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// FakeID generates random fake identity key for testing purpose.
func FakeID(seed ...int64) (id ID) {
	randRead := rand.Read

	if len(seed) > 0 {
		src := rand.NewSource(seed[0])
		rnd := rand.New(src)
		randRead = rnd.Read
	}

	_, err := randRead(id[:])
	if err != nil {
		panic(err)
	}
	return
}

/*
 * IDSet methods:
 */

// NewIDSet makes identity index.
func NewIDSet(ids ...ID) IDSet {
	set := IDSet{}
	set.Add(ids...)
	return set
}

// Copy copies identities to a new structure.
func (set IDSet) Copy() IDSet {
	ee := make(IDSet, len(set))
	for k, v := range set {
		ee[k] = v
	}
	return ee
}

// String returns human readable string representation.
func (set IDSet) String() string {
	ss := make([]string, 0, len(set))
	for id := range set {
		ss = append(ss, id.String())
	}
	return "[" + strings.Join(ss, ", ") + "]"
}

// Slice returns whole index as sorted slice.
func (set IDSet) Slice() IDs {
	arr := make(IDs, 0, len(set))
	for id := range set {
		arr = append(arr, id)
	}
	arr.Sort()
	return arr
}

// Add appends identity to the index.
func (set IDSet) Add(ids ...ID) {
	for _, id := range ids {
		set[id] = struct{}{}
	}
}

// Erase erase identity from the index.
func (set IDSet) Erase(ids ...ID) {
	for _, id := range ids {
		delete(set, id)
	}
}

// Contains returns true if identity is in.
func (set IDSet) Contains(id ID) bool {
	_, ok := set[id]
	return ok
}

/*
 * IDs methods:
 */

// Sort orders identities deterministically, by key bytes.
func (ids IDs) Sort() {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Less(ids[j])
	})
}

// Copy copies identities to a new structure.
func (ids IDs) Copy() IDs {
	ee := make(IDs, len(ids))
	copy(ee, ids)
	return ee
}

// Set returns whole slice as an IDSet.
func (ids IDs) Set() IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
