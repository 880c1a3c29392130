// Package trustgraph maintains the peer-vouching graph and derives
// propagated trust scores from it.
package trustgraph

import (
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chronos-foundation/chronos-base/inter/ident"
	"github.com/chronos-foundation/chronos-base/inter/idx"
	"github.com/chronos-foundation/chronos-base/inter/tier"
)

var (
	ErrSelfVouch       = errors.New("self-vouch is not allowed")
	ErrDuplicateVouch  = errors.New("vouch already exists")
	ErrPairCooldown    = errors.New("vouch pair is in cooldown")
	ErrVouchCapReached = errors.New("outgoing vouch cap reached")
	ErrVouchRateLimit  = errors.New("daily vouch rate limit exceeded")
	ErrLowReputation   = errors.New("reputation is below the vouching threshold")
)

// Config of the vouching policy and trust propagation.
type Config struct {
	// OutCaps is the per-tier limit on outgoing vouches.
	OutCaps [tier.Count]int
	// DailyLimit on vouches per voucher over a rolling day.
	DailyLimit int
	// MinScore required of both parties to form a vouch.
	MinScore float64
	// PairCooldown between repeated vouches over the same ordered pair.
	PairCooldown time.Duration

	// Damping factor of the trust propagation.
	Damping float64
	// Iterations of the damped relaxation.
	Iterations int
}

// DefaultConfig returns the production vouching policy.
func DefaultConfig() Config {
	return Config{
		OutCaps:      [tier.Count]int{tier.New: 2, tier.Light: 8, tier.Full: 32},
		DailyLimit:   10,
		MinScore:     0.3,
		PairCooldown: 24 * time.Hour,
		Damping:      0.85,
		Iterations:   20,
	}
}

type pair struct {
	from, to idx.Identity
}

// Graph is the in-memory vouch graph.
// Nodes live in an append-only arena; edges are integer adjacency lists.
type Graph struct {
	cfg Config

	ids     ident.IDs
	indexOf map[ident.ID]idx.Identity
	out     [][]idx.Identity
	in      [][]idx.Identity

	vouchTimes map[idx.Identity][]int64
	lastVouch  map[pair]int64

	logger *zap.Logger

	mu sync.Mutex
}

// New empty graph with the given policy.
func New(cfg Config, logger *zap.Logger) *Graph {
	return &Graph{
		cfg:        cfg,
		indexOf:    make(map[ident.ID]idx.Identity),
		vouchTimes: make(map[idx.Identity][]int64),
		lastVouch:  make(map[pair]int64),
		logger:     logger.Named("trustgraph"),
	}
}

func (g *Graph) touch(id ident.ID) idx.Identity {
	if i, ok := g.indexOf[id]; ok {
		return i
	}
	i := idx.Identity(len(g.ids))
	g.indexOf[id] = i
	g.ids = append(g.ids, id)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return i
}

func contains(list []idx.Identity, i idx.Identity) bool {
	for _, e := range list {
		if e == i {
			return true
		}
	}
	return false
}

func remove(list []idx.Identity, i idx.Identity) []idx.Identity {
	for n, e := range list {
		if e == i {
			return append(list[:n], list[n+1:]...)
		}
	}
	return list
}

func reindex(list []idx.Identity, from, to idx.Identity) {
	for n, e := range list {
		if e == from {
			list[n] = to
		}
	}
}

// AddVouch records a trust edge from voucher to vouchee.
// The caller supplies the voucher's tier and both parties' aggregate scores;
// the policy checks run in a fixed order so rejections are deterministic.
func (g *Graph) AddVouch(voucher, vouchee ident.ID, voucherTier tier.Tier, voucherScore, voucheeScore float64, now int64) error {
	if voucher == vouchee {
		return ErrSelfVouch
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	from, hasFrom := g.indexOf[voucher]
	to, hasTo := g.indexOf[vouchee]

	if hasFrom && hasTo {
		if contains(g.out[from], to) {
			return ErrDuplicateVouch
		}
		if last, ok := g.lastVouch[pair{from, to}]; ok {
			if now-last < int64(g.cfg.PairCooldown/time.Second) {
				return ErrPairCooldown
			}
		}
	}
	if hasFrom {
		if len(g.out[from]) >= g.cfg.OutCaps[voucherTier] {
			return ErrVouchCapReached
		}
		if len(g.recentVouches(from, now)) >= g.cfg.DailyLimit {
			return ErrVouchRateLimit
		}
	}
	if voucherScore < g.cfg.MinScore || voucheeScore < g.cfg.MinScore {
		return ErrLowReputation
	}

	// The arena grows only once the vouch is accepted.
	from = g.touch(voucher)
	to = g.touch(vouchee)
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
	g.vouchTimes[from] = append(g.recentVouches(from, now), now)
	g.lastVouch[pair{from, to}] = now

	g.logger.Debug("vouch added",
		zap.Stringer("voucher", voucher),
		zap.Stringer("vouchee", vouchee))
	return nil
}

// recentVouches prunes and returns the voucher's rolling-day vouch times.
func (g *Graph) recentVouches(from idx.Identity, now int64) []int64 {
	const day = 86400
	all := g.vouchTimes[from]
	recent := all[:0]
	for _, t := range all {
		if t > now-day {
			recent = append(recent, t)
		}
	}
	g.vouchTimes[from] = recent
	return recent
}

// RemoveVouch deletes the edge if it exists. The pair cooldown stays armed.
func (g *Graph) RemoveVouch(voucher, vouchee ident.ID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.indexOf[voucher]
	if !ok {
		return false
	}
	to, ok := g.indexOf[vouchee]
	if !ok {
		return false
	}
	if !contains(g.out[from], to) {
		return false
	}

	g.out[from] = remove(g.out[from], to)
	g.in[to] = remove(g.in[to], from)
	return true
}

// Vouchers returns the identities vouching for id, sorted.
func (g *Graph) Vouchers(id ident.ID) ident.IDs {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.neighbors(id, g.in)
}

// Vouchees returns the identities id vouches for, sorted.
func (g *Graph) Vouchees(id ident.ID) ident.IDs {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.neighbors(id, g.out)
}

func (g *Graph) neighbors(id ident.ID, adjacency [][]idx.Identity) ident.IDs {
	i, ok := g.indexOf[id]
	if !ok {
		return nil
	}
	ids := make(ident.IDs, 0, len(adjacency[i]))
	for _, n := range adjacency[i] {
		ids = append(ids, g.ids[n])
	}
	ids.Sort()
	return ids
}

// Dissolve removes every edge touching id and returns its former
// in-neighbors (vouchers) and out-neighbors (associates), so the caller
// can hold them accountable.
func (g *Graph) Dissolve(id ident.ID) (vouchers, associates ident.IDs) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i, ok := g.indexOf[id]
	if !ok {
		return nil, nil
	}

	for _, from := range g.in[i] {
		vouchers = append(vouchers, g.ids[from])
		g.out[from] = remove(g.out[from], i)
	}
	for _, to := range g.out[i] {
		associates = append(associates, g.ids[to])
		g.in[to] = remove(g.in[to], i)
	}
	g.in[i] = nil
	g.out[i] = nil

	vouchers.Sort()
	associates.Sort()
	return vouchers, associates
}

// Forget removes id from the graph entirely: any remaining edges are
// dissolved, the pair cooldowns involving id are released and its arena slot
// is reclaimed, so expired identities stop weighing on the propagation.
func (g *Graph) Forget(id ident.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i, ok := g.indexOf[id]
	if !ok {
		return
	}

	for _, from := range g.in[i] {
		g.out[from] = remove(g.out[from], i)
	}
	for _, to := range g.out[i] {
		g.in[to] = remove(g.in[to], i)
	}
	for pr := range g.lastVouch {
		if pr.from == i || pr.to == i {
			delete(g.lastVouch, pr)
		}
	}
	delete(g.vouchTimes, i)
	delete(g.indexOf, id)

	// The last arena slot fills the hole, keeping indices dense.
	last := idx.Identity(len(g.ids) - 1)
	if i != last {
		g.ids[i] = g.ids[last]
		g.in[i] = g.in[last]
		g.out[i] = g.out[last]
		g.indexOf[g.ids[i]] = i
		for _, from := range g.in[i] {
			reindex(g.out[from], last, i)
		}
		for _, to := range g.out[i] {
			reindex(g.in[to], last, i)
		}
		if times, ok := g.vouchTimes[last]; ok {
			g.vouchTimes[i] = times
			delete(g.vouchTimes, last)
		}
		moved := make(map[pair]int64)
		for pr, at := range g.lastVouch {
			if pr.from == last || pr.to == last {
				delete(g.lastVouch, pr)
				if pr.from == last {
					pr.from = i
				}
				if pr.to == last {
					pr.to = i
				}
				moved[pr] = at
			}
		}
		for pr, at := range moved {
			g.lastVouch[pr] = at
		}
	}
	g.ids = g.ids[:last]
	g.in = g.in[:last]
	g.out = g.out[:last]
}

// DirectTrust is the immediate trust floor from inbound vouch count:
// min(1, 0.2*log10(1 + 4*inbound)), so early vouches matter most.
func (g *Graph) DirectTrust(id ident.ID) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.directTrust(id)
}

func (g *Graph) directTrust(id ident.ID) float64 {
	i, ok := g.indexOf[id]
	if !ok {
		return 0
	}
	n := len(g.in[i])
	if n == 0 {
		return 0
	}
	return math.Min(1, 0.2*math.Log10(1+float64(n)*4))
}

// Propagate runs the damped iterative relaxation over the vouch graph and
// returns a propagated-trust score per identity, summing to 1.
func (g *Graph) Propagate() map[ident.ID]float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := len(g.ids)
	if n == 0 {
		return map[ident.ID]float64{}
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1 / float64(n)
	}

	next := make([]float64, n)
	for iter := 0; iter < g.cfg.Iterations; iter++ {
		total := 0.0
		for i := 0; i < n; i++ {
			incoming := 0.0
			for _, from := range g.in[i] {
				outDeg := len(g.out[from])
				if outDeg == 0 {
					outDeg = 1
				}
				incoming += scores[from] / float64(outDeg)
			}
			next[i] = (1-g.cfg.Damping)/float64(n) + g.cfg.Damping*incoming
			total += next[i]
		}
		if total > 0 {
			for i := range next {
				next[i] /= total
			}
		}
		scores, next = next, scores
	}

	result := make(map[ident.ID]float64, n)
	for i, id := range g.ids {
		result[id] = scores[i]
	}
	return result
}

// Multipliers derives the trust multiplier per identity in [0,1]: the larger
// of the direct-vouch floor and the propagated score relative to the best
// propagated score.
func (g *Graph) Multipliers() map[ident.ID]float64 {
	propagated := g.Propagate()

	max := 0.0
	for _, s := range propagated {
		if s > max {
			max = s
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	result := make(map[ident.ID]float64, len(propagated))
	for id, s := range propagated {
		m := g.directTrust(id)
		if max > 0 && s/max > m {
			m = s / max
		}
		if m > 1 {
			m = 1
		}
		result[id] = m
	}
	return result
}

// Edge is a persisted vouch.
type Edge struct {
	Voucher ident.ID
	Vouchee ident.ID
	Time    uint64
}

// Edges dumps the graph for persistence, ordered by arena index.
func (g *Graph) Edges() []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()

	var edges []Edge
	for from, adj := range g.out {
		for _, to := range adj {
			edges = append(edges, Edge{
				Voucher: g.ids[from],
				Vouchee: g.ids[to],
				Time:    uint64(g.lastVouch[pair{idx.Identity(from), to}]),
			})
		}
	}
	return edges
}

// RestoreEdge installs a persisted vouch, bypassing the acceptance policy.
func (g *Graph) RestoreEdge(e Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	from := g.touch(e.Voucher)
	to := g.touch(e.Vouchee)
	if contains(g.out[from], to) {
		return
	}
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
	g.lastVouch[pair{from, to}] = int64(e.Time)
}

// Len is the number of known identities.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ids)
}
