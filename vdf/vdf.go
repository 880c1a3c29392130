// Package vdf implements the sequential delay proof.
//
// The proof is a SHA-256 hash chain over a seeded state. The chain cannot be
// parallelized, so a valid proof is evidence that real time elapsed between
// the input commitment and the output digest.
package vdf

import (
	"errors"

	"github.com/chronos-foundation/chronos-base/common/bigendian"
	"github.com/chronos-foundation/chronos-base/hash"
)

const (
	// CheckpointInterval is the number of chain steps between recorded checkpoints.
	CheckpointInterval = 1000

	// MaxIterations bounds a single proof.
	MaxIterations = 1 << 24

	// sampledSegments is how many segments Verify recomputes in full.
	sampledSegments = 4
)

var (
	ErrZeroIterations     = errors.New("zero iterations")
	ErrHugeValue          = errors.New("too big iterations value")
	ErrMalformedProof     = errors.New("malformed delay proof")
	ErrIterationsMismatch = errors.New("proof iterations mismatch")
	ErrCheckpointsCount   = errors.New("wrong checkpoints count")
	ErrInputMismatch      = errors.New("proof input mismatch")
	ErrOutputMismatch     = errors.New("proof output mismatch")
	ErrBrokenChain        = errors.New("checkpoint chain mismatch")

	seedPrefix = []byte("chronos/vdf/v1")
)

// Proof of a completed hash chain.
// Checkpoints[0] is the seeded initial state, Checkpoints[len-1] equals Output.
// Immutable once produced.
type Proof struct {
	Input       hash.Hash
	Output      hash.Hash
	Iterations  uint64
	Checkpoints hash.Hashes
}

// seedState derives the initial chain state from the input commitment.
func seedState(input hash.Hash) hash.Hash {
	return hash.Of(seedPrefix, input.Bytes())
}

// step applies one sequential chain transition.
func step(state hash.Hash) hash.Hash {
	return hash.Of(state.Bytes())
}

// segmentsOf is the number of checkpoint segments for the iteration count.
func segmentsOf(iterations uint64) uint64 {
	return (iterations + CheckpointInterval - 1) / CheckpointInterval
}

// segmentLen is the iteration count inside the given segment.
func segmentLen(iterations, segment uint64) uint64 {
	begin := segment * CheckpointInterval
	if begin+CheckpointInterval <= iterations {
		return CheckpointInterval
	}
	return iterations - begin
}

// Compute performs iterations sequential hash applications over the seeded
// state, recording a checkpoint every CheckpointInterval steps.
// Pure function of the input and the iteration count.
func Compute(input hash.Hash, iterations uint64) (*Proof, error) {
	if iterations == 0 {
		return nil, ErrZeroIterations
	}
	if iterations > MaxIterations {
		return nil, ErrHugeValue
	}

	state := seedState(input)
	checkpoints := hash.Hashes{state}

	for i := uint64(1); i <= iterations; i++ {
		state = step(state)
		if i%CheckpointInterval == 0 || i == iterations {
			checkpoints = append(checkpoints, state)
		}
	}

	return &Proof{
		Input:       input,
		Output:      state,
		Iterations:  iterations,
		Checkpoints: checkpoints,
	}, nil
}

// sampleSegments picks the segments to recompute, deterministically from the
// proof content, so prover and verifier agree without interaction.
func sampleSegments(input, output hash.Hash, iterations uint64) []uint64 {
	total := segmentsOf(iterations)
	if total <= sampledSegments {
		all := make([]uint64, total)
		for i := range all {
			all[i] = uint64(i)
		}
		return all
	}

	seed := hash.Of(input.Bytes(), output.Bytes(), bigendian.Uint64ToBytes(iterations))
	picked := make([]uint64, sampledSegments)
	for i := range picked {
		h := hash.Of(seed.Bytes(), bigendian.Uint64ToBytes(uint64(i)))
		picked[i] = bigendian.BytesToUint64(h.Bytes()[:8]) % total
	}
	return picked
}

// Verify checks the proof without repeating all iterations: it validates the
// checkpoint shape and endpoint linkage, then recomputes a deterministic
// sample of segments in full.
// A failure is reported as an error; the caller must treat it as a rejected
// candidate, never as a fault.
func Verify(input hash.Hash, p *Proof, iterations uint64) error {
	if p == nil || len(p.Checkpoints) == 0 {
		return ErrMalformedProof
	}
	if iterations == 0 {
		return ErrZeroIterations
	}
	if iterations > MaxIterations {
		return ErrHugeValue
	}
	if p.Iterations != iterations {
		return ErrIterationsMismatch
	}
	if p.Input != input {
		return ErrInputMismatch
	}

	segments := segmentsOf(iterations)
	if uint64(len(p.Checkpoints)) != segments+1 {
		return ErrCheckpointsCount
	}
	if p.Checkpoints[0] != seedState(input) {
		return ErrInputMismatch
	}
	if p.Checkpoints[len(p.Checkpoints)-1] != p.Output {
		return ErrOutputMismatch
	}

	for _, seg := range sampleSegments(input, p.Output, iterations) {
		state := p.Checkpoints[seg]
		steps := segmentLen(iterations, seg)
		for i := uint64(0); i < steps; i++ {
			state = step(state)
		}
		if state != p.Checkpoints[seg+1] {
			return ErrBrokenChain
		}
	}

	return nil
}
