package reputation

import (
	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/inter/ident"
)

// EventKind is a behavioral observation category.
type EventKind uint8

const (
	BlockProduced EventKind = iota
	BlockValidated
	TxRelayed
	UptimeCheckpoint
	PeerVouch

	InvalidBlock
	InvalidProof
	Equivocation
	Downtime
	SpamDetected
	PeerComplaint
)

func (k EventKind) String() string {
	switch k {
	case BlockProduced:
		return "block-produced"
	case BlockValidated:
		return "block-validated"
	case TxRelayed:
		return "tx-relayed"
	case UptimeCheckpoint:
		return "uptime-checkpoint"
	case PeerVouch:
		return "peer-vouch"
	case InvalidBlock:
		return "invalid-block"
	case InvalidProof:
		return "invalid-proof"
	case Equivocation:
		return "equivocation"
	case Downtime:
		return "downtime"
	case SpamDetected:
		return "spam-detected"
	case PeerComplaint:
		return "peer-complaint"
	}
	return "unknown"
}

// Impact of the event on its dimension, negative for violations.
func (k EventKind) Impact() float64 {
	switch k {
	case BlockProduced:
		return 0.05
	case BlockValidated:
		return 0.02
	case TxRelayed:
		return 0.01
	case UptimeCheckpoint:
		return 0.03
	case PeerVouch:
		return 0.10
	case InvalidBlock:
		return -0.15
	case InvalidProof:
		return -0.25
	case Equivocation:
		return -1.0
	case Downtime:
		return -0.10
	case SpamDetected:
		return -0.20
	case PeerComplaint:
		return -0.05
	}
	return 0
}

// Dimension the event applies to.
func (k EventKind) Dimension() Dimension {
	switch k {
	case BlockProduced, UptimeCheckpoint, Downtime:
		return Reliability
	case BlockValidated, TxRelayed:
		return Contribution
	case PeerVouch, PeerComplaint:
		return Community
	case InvalidBlock, InvalidProof, Equivocation, SpamDetected:
		return Integrity
	}
	return Integrity
}

// penaltySeconds the event triggers, 0 when the event carries no penalty.
func (k EventKind) penaltySeconds() int64 {
	const day = 86400
	switch k {
	case Equivocation:
		return 180 * day
	case InvalidProof:
		return 30 * day
	case SpamDetected:
		return 7 * day
	}
	return 0
}

// Record of an accepted reputation event.
// Impact is not stored: it is a pure function of Kind.
type Record struct {
	Kind     EventKind
	Time     uint64
	Height   uint64
	Source   ident.ID
	Evidence hash.Hash
}
