package reputation

import (
	"math"
)

// Dimension is one axis of an identity's behavioral score.
type Dimension uint8

const (
	// Reliability reflects uptime and consistent production.
	Reliability Dimension = iota
	// Integrity reflects absence of violations and valid proofs.
	Integrity
	// Contribution reflects useful work relayed into the network.
	Contribution
	// Longevity reflects time-weighted presence.
	Longevity
	// Community reflects peer trust and vouching.
	Community

	// DimCount of dimensions.
	DimCount = 5
)

func (d Dimension) String() string {
	switch d {
	case Reliability:
		return "reliability"
	case Integrity:
		return "integrity"
	case Contribution:
		return "contribution"
	case Longevity:
		return "longevity"
	case Community:
		return "community"
	}
	return "unknown"
}

// dimWeights sum to 1 and prioritize integrity and reliability.
var dimWeights = [DimCount]float64{
	Reliability:  0.25,
	Integrity:    0.30,
	Contribution: 0.15,
	Longevity:    0.20,
	Community:    0.10,
}

// DimScore is the state of a single dimension.
type DimScore struct {
	Value      float64
	Confidence float64
	Samples    uint32
	LastUpdate int64
}

// update folds an observation in [0,1] into the dimension via an
// exponentially decayed weighted average.
//
// decay = exp(-age/halfLife), alpha = w/(n+w),
// v' = clamp01((1-alpha)*v*decay + alpha*o).
// Confidence saturates around confidenceScale samples.
func (s *DimScore) update(observation, weight float64, at int64, halfLife, confidenceScale float64) {
	decay := 0.0
	if s.LastUpdate > 0 {
		age := float64(at - s.LastUpdate)
		decay = math.Exp(-age / halfLife)
	}

	alpha := 1.0
	if s.Samples > 0 {
		alpha = weight / (float64(s.Samples) + weight)
	}

	s.Value = clamp01((1-alpha)*s.Value*decay + alpha*observation)

	s.Samples++
	s.Confidence = 1 - math.Exp(-float64(s.Samples)/confidenceScale)
	s.LastUpdate = at
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
