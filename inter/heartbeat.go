package inter

import (
	"fmt"

	"github.com/chronos-foundation/chronos-base/common/bigendian"
	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/inter/ident"
	"github.com/chronos-foundation/chronos-base/inter/idx"
)

// SigSize of an ed25519 signature.
const SigSize = 64

// Heartbeat is a signed liveness claim of an identity.
// Seq grows by one per heartbeat of the same creator; FinalityRef pins the
// depth the creator had accepted; ProofRef commits to the delay-proof tip it
// observed.
type Heartbeat struct {
	Creator     ident.ID
	Seq         idx.Seq
	Time        uint64
	FinalityRef idx.Depth
	ProofRef    hash.Hash

	Sig [SigSize]byte
}

// HashToSign of all fields except the signature.
func (hb *Heartbeat) HashToSign() hash.Hash {
	return hash.Of(
		hb.Creator.Bytes(),
		hb.Seq.Bytes(),
		bigendian.Uint64ToBytes(hb.Time),
		hb.FinalityRef.Bytes(),
		hb.ProofRef.Bytes(),
	)
}

// ID of the heartbeat, unique per creator and content.
func (hb *Heartbeat) ID() hash.Hash {
	return hash.Of(hb.HashToSign().Bytes(), hb.Sig[:])
}

func (hb *Heartbeat) String() string {
	return fmt.Sprintf("{Heartbeat %s seq=%d depth=%d}", hb.Creator.TerminalString(), hb.Seq, hb.FinalityRef)
}
