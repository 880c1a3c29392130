package idx

import (
	"github.com/chronos-foundation/chronos-base/common/bigendian"
)

type (
	// Depth is the count of accepted delay-proof checkpoint units since genesis.
	Depth uint64

	// Round numeration of production rounds.
	Round uint64

	// Seq numeration of per-identity heartbeats.
	Seq uint64

	// Identity is an offset of an identity inside a group.
	Identity uint32
)

// Bytes gets the byte representation of the index.
func (d Depth) Bytes() []byte {
	return bigendian.Uint64ToBytes(uint64(d))
}

// Bytes gets the byte representation of the index.
func (r Round) Bytes() []byte {
	return bigendian.Uint64ToBytes(uint64(r))
}

// Bytes gets the byte representation of the index.
func (s Seq) Bytes() []byte {
	return bigendian.Uint64ToBytes(uint64(s))
}

// BytesToDepth converts bytes to depth index.
func BytesToDepth(b []byte) Depth {
	return Depth(bigendian.BytesToUint64(b))
}

// BytesToRound converts bytes to round index.
func BytesToRound(b []byte) Round {
	return Round(bigendian.BytesToUint64(b))
}

// BytesToSeq converts bytes to sequence index.
func BytesToSeq(b []byte) Seq {
	return Seq(bigendian.BytesToUint64(b))
}
