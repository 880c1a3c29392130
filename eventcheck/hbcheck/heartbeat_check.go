package hbcheck

import (
	"crypto/ed25519"
	"errors"

	"github.com/chronos-foundation/chronos-base/inter"
	"github.com/chronos-foundation/chronos-base/inter/ident"
	"github.com/chronos-foundation/chronos-base/inter/idx"
)

var (
	ErrNonMonotonicSeq  = errors.New("heartbeat sequence is not monotonic")
	ErrStaleFinalityRef = errors.New("heartbeat finality reference is stale")
	ErrBadSignature     = errors.New("heartbeat signature is invalid")
)

// Reader gives access to the accepted state the check runs against.
type Reader interface {
	// LastSeq of the creator's accepted heartbeats, 0 if none.
	LastSeq(creator ident.ID) idx.Seq
	// CurrentDepth of the locally accepted chain.
	CurrentDepth() idx.Depth
}

// Config of the heartbeat acceptance rules.
type Config struct {
	// DepthLag is how far behind the accepted depth a finality reference
	// may point.
	DepthLag idx.Depth
}

// DefaultConfig returns the production acceptance rules.
func DefaultConfig() Config {
	return Config{
		DepthLag: 2,
	}
}

// Checker validates heartbeats against the accepted state.
type Checker struct {
	config Config
	reader Reader
}

// New validator which checks signature, sequence monotonicity and finality
// reference freshness.
func New(config Config, reader Reader) *Checker {
	return &Checker{
		config: config,
		reader: reader,
	}
}

// Validate heartbeat.
func (v *Checker) Validate(hb *inter.Heartbeat) error {
	pub := ed25519.PublicKey(hb.Creator.Bytes())
	if !ed25519.Verify(pub, hb.HashToSign().Bytes(), hb.Sig[:]) {
		return ErrBadSignature
	}

	if hb.Seq <= v.reader.LastSeq(hb.Creator) {
		return ErrNonMonotonicSeq
	}

	if hb.FinalityRef+v.config.DepthLag < v.reader.CurrentDepth() {
		return ErrStaleFinalityRef
	}

	return nil
}
