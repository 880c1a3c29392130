// Package eligibility performs the per-round weighted draw of the next
// producer.
//
// All randomness derives from the public round seed, so every node that
// agrees on the seed and the candidate set selects the same identity.
package eligibility

import (
	"sort"
	"time"

	"github.com/chronos-foundation/chronos-base/common/bigendian"
	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/inter/ident"
	"github.com/chronos-foundation/chronos-base/inter/idx"
	"github.com/chronos-foundation/chronos-base/inter/tier"
)

// Config of the eligibility rules.
type Config struct {
	// TierWeights is the probability of drawing each tier. Sums to 1.
	TierWeights [tier.Count]float64
	// MinHeartbeats required before a candidate may be drawn.
	MinHeartbeats idx.Seq
	// ActivityWindow within which the candidate must have been active.
	ActivityWindow time.Duration
	// DepthTolerance on the candidate's finality reference.
	DepthTolerance idx.Depth
}

// DefaultConfig returns the production eligibility rules.
func DefaultConfig() Config {
	return Config{
		TierWeights:    [tier.Count]float64{tier.New: 0.1, tier.Light: 0.3, tier.Full: 0.6},
		MinHeartbeats:  10,
		ActivityWindow: time.Hour,
		DepthTolerance: 2,
	}
}

// LiteConfig returns relaxed rules for tests.
func LiteConfig() Config {
	cfg := DefaultConfig()
	cfg.MinHeartbeats = 1
	return cfg
}

// Input is one candidate as seen at the start of the round.
// Score is the capped effective score; the selector applies no caps itself.
type Input struct {
	ID           ident.ID
	Tier         tier.Tier
	Score        float64
	Heartbeats   idx.Seq
	LastActivity int64
	FinalityRef  idx.Depth
}

// Candidate is the selected producer.
type Candidate struct {
	ID    ident.ID
	Tier  tier.Tier
	Score float64
}

// Selector is stateless; one instance serves all rounds.
type Selector struct {
	cfg Config
}

// New selector with the given rules.
func New(cfg Config) *Selector {
	return &Selector{
		cfg: cfg,
	}
}

// unit maps the first 8 bytes of h onto [0,1).
func unit(h hash.Hash) float64 {
	return float64(bigendian.BytesToUint64(h.Bytes()[:8])) / (1 << 64)
}

// passesTicket is the unpredictability gate: a deterministic ticket from the
// candidate's key and the round seed must fall under its score-derived
// threshold, so candidates cannot self-select by grinding.
func passesTicket(id ident.ID, seed hash.Hash, score float64) bool {
	ticket := unit(hash.Of(id.Bytes(), seed.Bytes()))
	return ticket < score
}

// eligible filters the round's inputs and sorts them by ID.
func (s *Selector) eligible(seed hash.Hash, now int64, currentDepth idx.Depth, inputs []Input) []Input {
	window := int64(s.cfg.ActivityWindow / time.Second)

	var out []Input
	for _, in := range inputs {
		if in.Score <= 0 {
			continue
		}
		if in.Heartbeats < s.cfg.MinHeartbeats {
			continue
		}
		if in.LastActivity < now-window {
			continue
		}
		if in.FinalityRef+s.cfg.DepthTolerance < currentDepth || in.FinalityRef > currentDepth+s.cfg.DepthTolerance {
			continue
		}
		if !passesTicket(in.ID, seed, in.Score) {
			continue
		}
		out = append(out, in)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.Less(out[j].ID)
	})
	return out
}

// drawTier walks the fixed tier-weight CDF with seed randomness.
func (s *Selector) drawTier(round idx.Round, seed hash.Hash) tier.Tier {
	r := unit(hash.Of(seed.Bytes(), round.Bytes(), []byte("tier")))

	acc := 0.0
	for t := tier.Tier(0); t < tier.Count; t++ {
		acc += s.cfg.TierWeights[t]
		if r < acc {
			return t
		}
	}
	return tier.Full
}

// drawWeighted walks the candidates' score CDF with seed randomness.
func drawWeighted(round idx.Round, seed hash.Hash, pool []Input) (Candidate, bool) {
	total := 0.0
	for _, in := range pool {
		total += in.Score
	}
	if total == 0 {
		return Candidate{}, false
	}

	r := unit(hash.Of(seed.Bytes(), round.Bytes(), []byte("draw"))) * total

	acc := 0.0
	for _, in := range pool {
		acc += in.Score
		if r < acc {
			return Candidate{ID: in.ID, Tier: in.Tier, Score: in.Score}, true
		}
	}
	last := pool[len(pool)-1]
	return Candidate{ID: last.ID, Tier: last.Tier, Score: last.Score}, true
}

// Select draws the round's producer: a tier is drawn first by fixed weights,
// then a score-weighted draw runs inside it. An empty tier falls back to the
// full eligible pool. Returns false when no candidate is eligible.
func (s *Selector) Select(round idx.Round, seed hash.Hash, now int64, currentDepth idx.Depth, inputs []Input) (Candidate, bool) {
	pool := s.eligible(seed, now, currentDepth, inputs)
	if len(pool) == 0 {
		return Candidate{}, false
	}

	chosen := s.drawTier(round, seed)

	var inTier []Input
	for _, in := range pool {
		if in.Tier == chosen {
			inTier = append(inTier, in)
		}
	}
	if len(inTier) == 0 {
		inTier = pool
	}

	return drawWeighted(round, seed, inTier)
}
