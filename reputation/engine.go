// Package reputation maintains multi-dimensional behavioral scores for
// identities, updated online from observed events with time decay.
package reputation

import (
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chronos-foundation/chronos-base/eventcheck/timecheck"
	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/inter/ident"
)

var (
	ErrFutureHeight = errors.New("event height is ahead of the accepted height")
)

// Config of the engine's scoring model.
type Config struct {
	// Timestamps is the acceptance window for event timestamps.
	Timestamps timecheck.Config

	// DecayHalfLife of dimension values between observations.
	DecayHalfLife time.Duration
	// ConfidenceScale is the sample count at which confidence saturates.
	ConfidenceScale float64
	// MaxHistory bounds the per-identity event log.
	MaxHistory int
	// Expiration after which inactive identities are garbage collected.
	Expiration time.Duration
	// LongevityRamp is the age at which the longevity dimension reaches 1.
	LongevityRamp time.Duration
	// HeightTolerance is how far ahead of the accepted height an event may claim.
	HeightTolerance uint64
	// PenaltyFactor scales the score of a penalized identity.
	PenaltyFactor float64
}

// DefaultConfig returns the production scoring model.
func DefaultConfig() Config {
	return Config{
		Timestamps:      timecheck.DefaultConfig(),
		DecayHalfLife:   168 * time.Hour,
		ConfidenceScale: 100,
		MaxHistory:      1000,
		Expiration:      365 * 24 * time.Hour,
		LongevityRamp:   180 * 24 * time.Hour,
		HeightTolerance: 10,
		PenaltyFactor:   0.1,
	}
}

// LiteConfig returns a scaled-down model for tests.
func LiteConfig() Config {
	cfg := DefaultConfig()
	cfg.ConfidenceScale = 10
	cfg.MaxHistory = 100
	cfg.Expiration = 24 * time.Hour
	cfg.LongevityRamp = time.Hour
	return cfg
}

// Engine owns all reputation profiles.
// All mutating operations are serialized behind one lock; readers get copies.
type Engine struct {
	cfg        Config
	timestamps *timecheck.Checker

	profiles map[ident.ID]*Profile
	height   uint64

	logger *zap.Logger

	mu sync.Mutex
}

// New engine with the given scoring model.
func New(cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		timestamps: timecheck.New(cfg.Timestamps),
		profiles:   make(map[ident.ID]*Profile),
		logger:     logger.Named("reputation"),
	}
}

// SetHeight updates the accepted height used to validate event claims.
func (e *Engine) SetHeight(h uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.height = h
}

func (e *Engine) getOrCreate(id ident.ID, now int64) *Profile {
	p := e.profiles[id]
	if p == nil {
		p = &Profile{
			CreatedAt: now,
		}
		e.profiles[id] = p
		e.logger.Debug("new profile", zap.Stringer("id", id))
	}
	return p
}

// RecordEvent folds a behavioral observation into the identity's profile and
// returns the new aggregate score.
// The event timestamp at must fall inside the acceptance window around now,
// and the claimed height must not run ahead of the accepted height.
func (e *Engine) RecordEvent(id ident.ID, kind EventKind, at, now int64, height uint64, source ident.ID, evidence hash.Hash) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.timestamps.Validate(at, now); err != nil {
		return 0, err
	}
	if height > 0 && e.height > 0 && height > e.height+e.cfg.HeightTolerance {
		return 0, ErrFutureHeight
	}

	p := e.getOrCreate(id, at)
	p.addRecord(Record{
		Kind:     kind,
		Time:     uint64(at),
		Height:   height,
		Source:   source,
		Evidence: evidence,
	}, e.cfg.MaxHistory)

	impact := kind.Impact()
	observation := clamp01(0.5 + impact*0.5)
	halfLife := e.cfg.DecayHalfLife.Seconds()

	p.Dims[kind.Dimension()].update(observation, math.Abs(impact)*10, at, halfLife, e.cfg.ConfidenceScale)

	if dur := kind.penaltySeconds(); dur > 0 {
		p.applyPenalty(at, dur)
		e.logger.Warn("penalty applied",
			zap.Stringer("id", id),
			zap.Stringer("kind", kind),
			zap.Int64("until", p.PenaltyUntil))
	}

	// Presence in the network moves longevity regardless of the event kind.
	age := float64(at-p.CreatedAt) / e.cfg.LongevityRamp.Seconds()
	p.Dims[Longevity].update(math.Min(1, age), 0.1, at, halfLife, e.cfg.ConfidenceScale)

	score := p.computeAggregate()
	e.logger.Debug("event recorded",
		zap.Stringer("id", id),
		zap.Stringer("kind", kind),
		zap.Float64("impact", impact),
		zap.Float64("score", score))

	return score, nil
}

// Score returns the identity's aggregate score, scaled down while a penalty
// is active. Unknown identities score 0.
func (e *Engine) Score(id ident.ID, now int64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score(id, now)
}

func (e *Engine) score(id ident.ID, now int64) float64 {
	p := e.profiles[id]
	if p == nil {
		return 0
	}
	if p.checkPenalty(now) {
		return e.cfg.PenaltyFactor * p.Aggregate
	}
	return p.Aggregate
}

// Scores copies out every identity's effective score.
// The returned map is owned by the caller; no engine lock is held over it.
func (e *Engine) Scores(now int64) map[ident.ID]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	scores := make(map[ident.ID]float64, len(e.profiles))
	for id := range e.profiles {
		scores[id] = e.score(id, now)
	}
	return scores
}

// Profile returns a copy of the identity's full profile.
func (e *Engine) Profile(id ident.ID) (*Profile, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.profiles[id]
	if p == nil {
		return nil, false
	}
	return p.Copy(), true
}

// IDs returns all known identities, sorted.
func (e *Engine) IDs() ident.IDs {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make(ident.IDs, 0, len(e.profiles))
	for id := range e.profiles {
		ids = append(ids, id)
	}
	ids.Sort()
	return ids
}

// Slash records the slashing condition against the identity and resets every
// dimension to zero, collapsing the aggregate to 0. The profile and its
// history survive so the offense stays attributable, and the condition's
// penalty window keeps the identity out of garbage collection.
// Only fresh events can rebuild a slashed score.
func (e *Engine) Slash(id ident.ID, condition EventKind, now int64, height uint64, evidence hash.Hash) error {
	if _, err := e.RecordEvent(id, condition, now, now, height, ident.ID{}, evidence); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.profiles[id]
	for d := Dimension(0); d < DimCount; d++ {
		p.Dims[d].Value = 0
	}
	p.LastUpdate = now
	p.computeAggregate()

	e.logger.Warn("profile slashed",
		zap.Stringer("id", id),
		zap.Stringer("condition", condition))
	return nil
}

// Scale multiplies every dimension value by factor in [0,1].
// Used to propagate consequences to parties associated with a misbehaving
// identity.
func (e *Engine) Scale(id ident.ID, factor float64, now int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.profiles[id]
	if p == nil {
		return
	}

	factor = clamp01(factor)
	for d := Dimension(0); d < DimCount; d++ {
		p.Dims[d].Value = clamp01(p.Dims[d].Value * factor)
	}
	p.LastUpdate = now
	p.computeAggregate()
}

// Multiplier maps the score onto a consensus probability multiplier in
// [0.1, 2.0], neutral at score 0.5.
func (e *Engine) Multiplier(id ident.ID, now int64) float64 {
	return 0.1 + e.Score(id, now)*1.9
}

// GarbageCollect removes identities inactive beyond the expiration window.
// Penalized identities are retained for accountability.
// Returns the removed identities so referencing structures can drop them too.
func (e *Engine) GarbageCollect(now int64) ident.IDs {
	e.mu.Lock()
	defer e.mu.Unlock()

	expiration := int64(e.cfg.Expiration / time.Second)

	var removed ident.IDs
	for id, p := range e.profiles {
		last := p.LastUpdate
		if last == 0 {
			last = p.CreatedAt
		}
		if now-last <= expiration || p.Penalized {
			continue
		}
		removed = append(removed, id)
	}

	for _, id := range removed {
		delete(e.profiles, id)
	}
	if len(removed) > 0 {
		removed.Sort()
		e.logger.Info("expired profiles collected", zap.Int("count", len(removed)))
	}
	return removed
}

// Restore installs a persisted profile, replacing any existing state.
func (e *Engine) Restore(id ident.ID, p *Profile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profiles[id] = p.Copy()
}
