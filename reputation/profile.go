package reputation

import (
	"io"
	"math"

	"github.com/ethereum/go-ethereum/rlp"
)

// Profile is the complete reputation state of one identity.
type Profile struct {
	Dims        [DimCount]DimScore
	Aggregate   float64
	CreatedAt   int64
	LastUpdate  int64
	TotalEvents uint64

	Penalized    bool
	PenaltyUntil int64

	History []Record
}

// computeAggregate refreshes the confidence-weighted mean of the dimensions.
func (p *Profile) computeAggregate() float64 {
	total := 0.0
	weightSum := 0.0
	for d := Dimension(0); d < DimCount; d++ {
		w := dimWeights[d] * p.Dims[d].Confidence
		total += p.Dims[d].Value * w
		weightSum += w
	}

	if weightSum > 0 {
		p.Aggregate = total / weightSum
	} else {
		p.Aggregate = 0
	}
	return p.Aggregate
}

// checkPenalty expires an elapsed penalty and reports whether one is active.
func (p *Profile) checkPenalty(now int64) bool {
	if p.Penalized && now >= p.PenaltyUntil {
		p.Penalized = false
	}
	return p.Penalized
}

// applyPenalty marks the profile penalized until now+duration.
// An already-active longer penalty is not shortened.
func (p *Profile) applyPenalty(now, duration int64) {
	until := now + duration
	if p.Penalized && p.PenaltyUntil > until {
		return
	}
	p.Penalized = true
	p.PenaltyUntil = until
}

// addRecord appends to history, evicting the oldest entries past the cap.
func (p *Profile) addRecord(r Record, maxHistory int) {
	p.History = append(p.History, r)
	p.TotalEvents++
	p.LastUpdate = int64(r.Time)

	if len(p.History) > maxHistory {
		p.History = append(p.History[:0:0], p.History[len(p.History)-maxHistory:]...)
	}
}

// Copy returns a deep copy safe to read outside the engine's lock.
func (p *Profile) Copy() *Profile {
	cp := *p
	cp.History = append(p.History[:0:0], p.History...)
	return &cp
}

type dimScoreRLP struct {
	ValueBits      uint64
	ConfidenceBits uint64
	Samples        uint32
	LastUpdate     uint64
}

type profileRLP struct {
	Dims         []dimScoreRLP
	CreatedAt    uint64
	LastUpdate   uint64
	TotalEvents  uint64
	Penalized    bool
	PenaltyUntil uint64
	History      []Record
}

// EncodeRLP implements rlp.Encoder. Float fields are stored as IEEE 754 bits.
func (p *Profile) EncodeRLP(w io.Writer) error {
	enc := profileRLP{
		Dims:         make([]dimScoreRLP, DimCount),
		CreatedAt:    uint64(p.CreatedAt),
		LastUpdate:   uint64(p.LastUpdate),
		TotalEvents:  p.TotalEvents,
		Penalized:    p.Penalized,
		PenaltyUntil: uint64(p.PenaltyUntil),
		History:      p.History,
	}
	for d := 0; d < DimCount; d++ {
		enc.Dims[d] = dimScoreRLP{
			ValueBits:      math.Float64bits(p.Dims[d].Value),
			ConfidenceBits: math.Float64bits(p.Dims[d].Confidence),
			Samples:        p.Dims[d].Samples,
			LastUpdate:     uint64(p.Dims[d].LastUpdate),
		}
	}
	return rlp.Encode(w, &enc)
}

// DecodeRLP implements rlp.Decoder.
func (p *Profile) DecodeRLP(s *rlp.Stream) error {
	var dec profileRLP
	if err := s.Decode(&dec); err != nil {
		return err
	}

	*p = Profile{
		CreatedAt:    int64(dec.CreatedAt),
		LastUpdate:   int64(dec.LastUpdate),
		TotalEvents:  dec.TotalEvents,
		Penalized:    dec.Penalized,
		PenaltyUntil: int64(dec.PenaltyUntil),
		History:      dec.History,
	}
	for d := 0; d < DimCount && d < len(dec.Dims); d++ {
		p.Dims[d] = DimScore{
			Value:      math.Float64frombits(dec.Dims[d].ValueBits),
			Confidence: math.Float64frombits(dec.Dims[d].ConfidenceBits),
			Samples:    dec.Dims[d].Samples,
			LastUpdate: int64(dec.Dims[d].LastUpdate),
		}
	}
	p.computeAggregate()

	return nil
}
