// Package finality accumulates verified delay proofs into a monotonic depth
// counter and provides the deterministic fork-choice rule.
package finality

import (
	"bytes"
	"errors"
	"sync"

	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/inter/idx"
	"github.com/chronos-foundation/chronos-base/vdf"
)

var (
	ErrTipMismatch = errors.New("proof does not extend the current tip")
)

// Level classifies accumulated depth into irreversibility classes.
type Level uint8

const (
	None Level = iota
	Soft
	Medium
	Hard
)

const (
	SoftDepth   idx.Depth = 1
	MediumDepth idx.Depth = 100
	HardDepth   idx.Depth = 1000
)

func (l Level) String() string {
	switch l {
	case None:
		return "none"
	case Soft:
		return "soft"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	}
	return "unknown"
}

// LevelOf maps accumulated depth onto a finality level.
func LevelOf(depth idx.Depth) Level {
	switch {
	case depth >= HardDepth:
		return Hard
	case depth >= MediumDepth:
		return Medium
	case depth >= SoftDepth:
		return Soft
	}
	return None
}

// State of the locally accepted proof chain.
// Depth only grows; Tip is the output digest of the last accepted proof.
type State struct {
	Depth   idx.Depth
	Tip     hash.Hash
	TipTime int64
}

// Level of the state's accumulated depth.
func (s State) Level() Level {
	return LevelOf(s.Depth)
}

// Compare is the fork-choice rule: greater depth wins, on tie the earlier
// tip timestamp, on tie the lexicographically smaller tip digest.
// Returns a positive value if a is preferred over b, negative if b is
// preferred, zero if they are the same chain tip.
func Compare(a, b State) int {
	if a.Depth != b.Depth {
		if a.Depth > b.Depth {
			return 1
		}
		return -1
	}
	if a.TipTime != b.TipTime {
		if a.TipTime < b.TipTime {
			return 1
		}
		return -1
	}
	return -bytes.Compare(a.Tip.Bytes(), b.Tip.Bytes())
}

// Best selects the preferred state among candidates by the fork-choice rule.
func Best(candidates []State) State {
	best := candidates[0]
	for _, s := range candidates[1:] {
		if Compare(s, best) > 0 {
			best = s
		}
	}
	return best
}

// Tracker owns the single authoritative finality state of the node.
type Tracker struct {
	state State

	mu sync.Mutex
}

// NewTracker starts a chain at the given genesis digest with zero depth.
func NewTracker(genesis hash.Hash) *Tracker {
	return &Tracker{
		state: State{
			Depth: 0,
			Tip:   genesis,
		},
	}
}

// NewTrackerFrom resumes a chain from a previously persisted state.
func NewTrackerFrom(s State) *Tracker {
	return &Tracker{
		state: s,
	}
}

// State returns a copy of the current finality state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Extend accepts a delay proof that extends the current tip.
// On success depth increments by one checkpoint unit and the tip moves to
// the proof's output. The proof is verified before any state changes.
func (t *Tracker) Extend(p *vdf.Proof, now int64) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p == nil {
		return t.state, vdf.ErrMalformedProof
	}
	if p.Input != t.state.Tip {
		return t.state, ErrTipMismatch
	}
	if err := vdf.Verify(t.state.Tip, p, p.Iterations); err != nil {
		return t.state, err
	}

	t.state.Depth++
	t.state.Tip = p.Output
	t.state.TipTime = now

	return t.state, nil
}
