// Package engine wires the delay-proof chain, reputation scoring, trust
// graph, cluster detection and the eligibility lottery into one node-level
// facade with optional persistence.
package engine

import (
	"sync"

	"go.uber.org/zap"

	"github.com/chronos-foundation/chronos-base/cluster"
	"github.com/chronos-foundation/chronos-base/eligibility"
	"github.com/chronos-foundation/chronos-base/eventcheck/hbcheck"
	"github.com/chronos-foundation/chronos-base/finality"
	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/inter"
	"github.com/chronos-foundation/chronos-base/inter/ident"
	"github.com/chronos-foundation/chronos-base/inter/idx"
	"github.com/chronos-foundation/chronos-base/inter/tier"
	"github.com/chronos-foundation/chronos-base/reputation"
	"github.com/chronos-foundation/chronos-base/trustgraph"
	"github.com/chronos-foundation/chronos-base/vdf"
)

// heartbeatState is the last accepted heartbeat of one identity.
type heartbeatState struct {
	Seq         idx.Seq
	Time        int64
	FinalityRef idx.Depth
}

// Engine coordinates the subsystems. Each subsystem keeps its own lock; the
// engine's lock covers only the heartbeat table, so cross-subsystem calls
// never nest critical sections.
type Engine struct {
	cfg Config

	rep      *reputation.Engine
	trust    *trustgraph.Graph
	clusters *cluster.Detector
	selector *eligibility.Selector
	tracker  *finality.Tracker
	checker  *hbcheck.Checker

	heartbeats map[ident.ID]heartbeatState

	store  *Store
	logger *zap.Logger

	mu sync.Mutex
}

// New engine starting the proof chain at genesis.
// A nil store keeps all state in memory; a nil logger silences the engine.
// With a store, previously persisted state is restored before the engine
// accepts input.
func New(cfg Config, genesis hash.Hash, store *Store, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("engine")

	e := &Engine{
		cfg:        cfg,
		rep:        reputation.New(cfg.Reputation, logger),
		trust:      trustgraph.New(cfg.Trust, logger),
		clusters:   cluster.New(cfg.Cluster, logger),
		selector:   eligibility.New(cfg.Eligibility),
		heartbeats: make(map[ident.ID]heartbeatState),
		store:      store,
		logger:     logger,
	}
	e.checker = hbcheck.New(cfg.Heartbeats, e)

	state := finality.State{Tip: genesis}
	if store != nil {
		if err := e.restore(&state); err != nil {
			return nil, err
		}
	}
	e.tracker = finality.NewTrackerFrom(state)
	e.rep.SetHeight(uint64(state.Depth))

	return e, nil
}

// restore loads all persisted state, overriding state if a finality record
// exists.
func (e *Engine) restore(state *finality.State) error {
	persisted, ok, err := e.store.GetFinality()
	if err != nil {
		return err
	}
	if ok {
		*state = persisted
	}

	err = e.store.ForEachProfile(func(id ident.ID, p *reputation.Profile) {
		e.rep.Restore(id, p)
	})
	if err != nil {
		return err
	}

	err = e.store.ForEachEdge(func(edge trustgraph.Edge) {
		e.trust.RestoreEdge(edge)
	})
	if err != nil {
		return err
	}

	err = e.store.ForEachHeartbeat(func(id ident.ID, hb heartbeatState) {
		e.heartbeats[id] = hb
	})
	if err != nil {
		return err
	}

	e.logger.Info("state restored",
		zap.Uint64("depth", uint64(state.Depth)),
		zap.Int("identities", len(e.heartbeats)))
	return nil
}

/*
 * hbcheck.Reader
 */

// LastSeq of the creator's accepted heartbeats, 0 if none.
func (e *Engine) LastSeq(creator ident.ID) idx.Seq {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.heartbeats[creator].Seq
}

// CurrentDepth of the locally accepted chain.
func (e *Engine) CurrentDepth() idx.Depth {
	return e.tracker.State().Depth
}

/*
 * Intake
 */

// ProcessHeartbeat validates a heartbeat and folds it into liveness and
// reputation state. Invalid heartbeats mutate nothing.
func (e *Engine) ProcessHeartbeat(hb *inter.Heartbeat, now int64) error {
	if err := e.checker.Validate(hb); err != nil {
		return err
	}

	_, err := e.rep.RecordEvent(hb.Creator, reputation.UptimeCheckpoint, int64(hb.Time), now, 0, ident.ID{}, hb.ID())
	if err != nil {
		return err
	}

	state := heartbeatState{
		Seq:         hb.Seq,
		Time:        now,
		FinalityRef: hb.FinalityRef,
	}
	e.mu.Lock()
	e.heartbeats[hb.Creator] = state
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SetHeartbeat(hb.Creator, state); err != nil {
			return err
		}
		if err := e.persistProfile(hb.Creator); err != nil {
			return err
		}
	}
	return nil
}

// ProcessEvent routes a behavioral observation into reputation scoring and,
// for observable network actions, into cluster detection.
// Returns the identity's new aggregate score.
func (e *Engine) ProcessEvent(id ident.ID, kind reputation.EventKind, at, now int64, height uint64, source ident.ID, evidence hash.Hash) (float64, error) {
	score, err := e.rep.RecordEvent(id, kind, at, now, height, source, evidence)
	if err != nil {
		return 0, err
	}

	if action, ok := actionOf(kind); ok {
		e.clusters.RecordAction(id, cluster.Action{
			Kind:   action,
			Time:   at * 1000,
			Height: height,
			Digest: evidence,
		})
	}

	if e.store != nil {
		if err := e.persistProfile(id); err != nil {
			return score, err
		}
	}
	return score, nil
}

// actionOf maps event kinds onto the observable action categories the
// cluster detector correlates.
func actionOf(kind reputation.EventKind) (cluster.ActionKind, bool) {
	switch kind {
	case reputation.BlockProduced:
		return cluster.ProduceBlock, true
	case reputation.BlockValidated:
		return cluster.Vote, true
	case reputation.TxRelayed:
		return cluster.RelayTx, true
	}
	return 0, false
}

// ProcessVouch applies the vouching policy and, on success, credits the
// vouchee's community standing.
func (e *Engine) ProcessVouch(voucher, vouchee ident.ID, now int64) error {
	voucherScore := e.rep.Score(voucher, now)
	voucheeScore := e.rep.Score(vouchee, now)

	err := e.trust.AddVouch(voucher, vouchee, e.tierOf(voucher), voucherScore, voucheeScore, now)
	if err != nil {
		return err
	}

	if _, err := e.rep.RecordEvent(vouchee, reputation.PeerVouch, now, now, 0, voucher, hash.Zero); err != nil {
		return err
	}

	if e.store != nil {
		err := e.store.SetEdge(trustgraph.Edge{
			Voucher: voucher,
			Vouchee: vouchee,
			Time:    uint64(now),
		})
		if err != nil {
			return err
		}
		if err := e.persistProfile(vouchee); err != nil {
			return err
		}
	}
	return nil
}

// ProcessSlashing records a slashing condition against the offender, resets
// its reputation to zero, dissolves its vouch edges and penalizes the parties
// who stood behind it. Returns the former vouchers and associates.
func (e *Engine) ProcessSlashing(offender ident.ID, condition reputation.EventKind, height uint64, evidence hash.Hash, now int64) (vouchers, associates ident.IDs, err error) {
	if err = e.rep.Slash(offender, condition, now, height, evidence); err != nil {
		return nil, nil, err
	}

	vouchers, associates = e.trust.Dissolve(offender)
	for _, id := range vouchers {
		e.rep.Scale(id, e.cfg.VoucherPenalty, now)
	}
	for _, id := range associates {
		e.rep.Scale(id, e.cfg.AssociatePenalty, now)
	}

	e.logger.Warn("identity slashed",
		zap.Stringer("offender", offender),
		zap.Stringer("condition", condition),
		zap.Int("vouchers", len(vouchers)),
		zap.Int("associates", len(associates)))

	if e.store != nil {
		if err = e.store.DelEdgesOf(offender); err != nil {
			return vouchers, associates, err
		}
		if err = e.persistProfile(offender); err != nil {
			return vouchers, associates, err
		}
		for _, id := range append(vouchers.Copy(), associates...) {
			if err = e.persistProfile(id); err != nil {
				return vouchers, associates, err
			}
		}
	}
	return vouchers, associates, nil
}

/*
 * Finality
 */

// ExtendFinality accepts a delay proof extending the current tip and moves
// the accepted height forward.
func (e *Engine) ExtendFinality(p *vdf.Proof, now int64) (finality.State, error) {
	state, err := e.tracker.Extend(p, now)
	if err != nil {
		return state, err
	}
	e.rep.SetHeight(uint64(state.Depth))

	if e.store != nil {
		if err := e.store.SetFinality(state); err != nil {
			return state, err
		}
	}
	return state, nil
}

// FinalityState returns the accepted chain state.
func (e *Engine) FinalityState() finality.State {
	return e.tracker.State()
}

/*
 * Selection
 */

// tierOf classifies an identity by its accepted heartbeat count.
func (e *Engine) tierOf(id ident.ID) tier.Tier {
	e.mu.Lock()
	seq := e.heartbeats[id].Seq
	e.mu.Unlock()
	return e.tierForSeq(seq)
}

func (e *Engine) tierForSeq(seq idx.Seq) tier.Tier {
	switch {
	case seq >= e.cfg.FullSeq:
		return tier.Full
	case seq >= e.cfg.LightSeq:
		return tier.Light
	}
	return tier.New
}

// effectiveScores combines reputation aggregates with trust multipliers and
// applies the cluster caps. A trustless identity keeps half its weight.
func (e *Engine) effectiveScores(now int64) map[ident.ID]float64 {
	scores := e.rep.Scores(now)
	trustMul := e.trust.Multipliers()

	effective := make(map[ident.ID]float64, len(scores))
	views := make(map[ident.ID]cluster.FingerprintView, len(scores))
	for id, s := range scores {
		effective[id] = s * (0.5 + 0.5*trustMul[id])

		if p, ok := e.rep.Profile(id); ok {
			shape := make([]float64, reputation.DimCount)
			for d := reputation.Dimension(0); d < reputation.DimCount; d++ {
				shape[d] = p.Dims[d].Value
			}
			views[id] = cluster.FingerprintView{
				CreatedAt: p.CreatedAt,
				Longevity: p.Dims[reputation.Longevity].Value,
				Shape:     shape,
			}
		}
	}

	return e.clusters.ApplyCaps(effective, views, now)
}

// SelectProducer runs the round's weighted lottery over all known identities.
// The seed is derived from the accepted tip, so every node in agreement on
// the chain draws the same producer. Returns false when no one is eligible.
func (e *Engine) SelectProducer(round idx.Round, now int64) (eligibility.Candidate, bool) {
	state := e.tracker.State()
	seed := hash.Of(state.Tip.Bytes(), round.Bytes())

	capped := e.effectiveScores(now)

	e.mu.Lock()
	inputs := make([]eligibility.Input, 0, len(capped))
	for id, score := range capped {
		hb := e.heartbeats[id]
		inputs = append(inputs, eligibility.Input{
			ID:           id,
			Tier:         e.tierForSeq(hb.Seq),
			Score:        score,
			Heartbeats:   hb.Seq,
			LastActivity: hb.Time,
			FinalityRef:  hb.FinalityRef,
		})
	}
	e.mu.Unlock()

	return e.selector.Select(round, seed, now, state.Depth, inputs)
}

/*
 * Maintenance
 */

// Maintenance garbage-collects expired identities across all subsystems.
// Called on an operator schedule, never on the hot path.
func (e *Engine) Maintenance(now int64) (removed ident.IDs, err error) {
	removed = e.rep.GarbageCollect(now)

	for _, id := range removed {
		e.trust.Forget(id)
		e.clusters.Forget(id)
	}

	e.mu.Lock()
	for _, id := range removed {
		delete(e.heartbeats, id)
	}
	e.mu.Unlock()

	if e.store != nil {
		for _, id := range removed {
			if err = e.store.DelProfile(id); err != nil {
				return removed, err
			}
			if err = e.store.DelEdgesOf(id); err != nil {
				return removed, err
			}
			if err = e.store.DelHeartbeat(id); err != nil {
				return removed, err
			}
		}
	}
	return removed, nil
}

// persistProfile writes the identity's current profile through to the store.
func (e *Engine) persistProfile(id ident.ID) error {
	p, ok := e.rep.Profile(id)
	if !ok {
		return nil
	}
	return e.store.SetProfile(id, p)
}

// Score of the identity as the lottery sees it, before trust and caps.
func (e *Engine) Score(id ident.ID, now int64) float64 {
	return e.rep.Score(id, now)
}

// Profile of the identity, copied out.
func (e *Engine) Profile(id ident.ID) (*reputation.Profile, bool) {
	return e.rep.Profile(id)
}
