// Package cluster detects coordinated identities and caps their combined
// selection weight.
//
// Two independent layers are used: pairwise behavioral correlation over a
// rolling action window, and profile-fingerprint similarity that catches
// groups evading the first layer with deliberate jitter.
package cluster

import (
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/inter/ident"
)

// ActionKind is a category of observable network action.
type ActionKind uint8

const (
	ProduceBlock ActionKind = iota
	Vote
	RelayTx

	actionKinds = 3
)

// Action is one observed network action of an identity.
// Time is in unix milliseconds to resolve the coincidence window.
type Action struct {
	Kind   ActionKind
	Time   int64
	Height uint64
	Digest hash.Hash
}

// Config of both detection layers.
type Config struct {
	// Window of action history kept per identity.
	Window time.Duration
	// CoincidenceWindow within which two actions count as simultaneous.
	CoincidenceWindow time.Duration
	// Threshold of pairwise correlation above which identities are merged.
	Threshold float64
	// MinActions per identity before a pair is scored.
	MinActions int
	// MinPopulation of identities before detection runs at all.
	MinPopulation int
	// RecomputeInterval rate-limits group detection.
	RecomputeInterval time.Duration
	// GroupCap is the max share of total weight any group may hold.
	GroupCap float64
	// CacheSize of the pairwise correlation cache.
	CacheSize int

	// CreationWindow of coordinated deployment for the fingerprint layer.
	CreationWindow time.Duration
	// MinGroupSize of a fingerprint group.
	MinGroupSize int
	// HighLongevity marks patient accumulation.
	HighLongevity float64
	// LowVariance of longevity inside a suspicious group.
	LowVariance float64
	// ShapeSimilarity is the mean profile cosine above which a group is flagged.
	ShapeSimilarity float64
}

// DefaultConfig returns the production detection thresholds.
func DefaultConfig() Config {
	return Config{
		Window:            24 * time.Hour,
		CoincidenceWindow: 100 * time.Millisecond,
		Threshold:         0.7,
		MinActions:        5,
		MinPopulation:     10,
		RecomputeInterval: 30 * time.Minute,
		GroupCap:          0.33,
		CacheSize:         8192,

		CreationWindow:  7 * 24 * time.Hour,
		MinGroupSize:    3,
		HighLongevity:   0.6,
		LowVariance:     0.05,
		ShapeSimilarity: 0.8,
	}
}

// LiteConfig returns thresholds suitable for small test populations.
func LiteConfig() Config {
	cfg := DefaultConfig()
	cfg.MinPopulation = 2
	cfg.RecomputeInterval = 0
	cfg.CacheSize = 128
	return cfg
}

// FingerprintView is the profile slice the fingerprint layer inspects.
// The caller extracts it from reputation state; the detector never reaches
// into other subsystems.
type FingerprintView struct {
	CreatedAt int64
	Longevity float64
	Shape     []float64
}

type pairKey struct {
	a, b ident.ID
}

func keyOf(a, b ident.ID) pairKey {
	if b.Less(a) {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Detector owns the action history and detected groups.
type Detector struct {
	cfg Config

	actions    map[ident.ID][]Action
	groups     []ident.IDs
	lastDetect int64

	cache  *lru.Cache
	logger *zap.Logger

	mu sync.Mutex
}

// New detector with empty history.
func New(cfg Config, logger *zap.Logger) *Detector {
	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		panic(err)
	}
	return &Detector{
		cfg:     cfg,
		actions: make(map[ident.ID][]Action),
		cache:   cache,
		logger:  logger.Named("cluster"),
	}
}

// RecordAction appends to the identity's rolling window.
func (d *Detector) RecordAction(id ident.ID, a Action) {
	d.mu.Lock()
	defer d.mu.Unlock()

	history := append(d.actions[id], a)

	cutoff := a.Time - int64(d.cfg.Window/time.Millisecond)
	kept := history[:0]
	for _, r := range history {
		if r.Time > cutoff {
			kept = append(kept, r)
		}
	}
	d.actions[id] = kept
}

// Forget drops the identity's history.
func (d *Detector) Forget(id ident.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.actions, id)
}

// Correlation between two identities in [0,1]: a weighted sum of timing
// coincidence, action-type histogram similarity and height-set overlap.
func (d *Detector) Correlation(a, b ident.ID) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.correlation(a, b)
}

func (d *Detector) correlation(a, b ident.ID) float64 {
	key := keyOf(a, b)
	if cached, ok := d.cache.Get(key); ok {
		return cached.(float64)
	}

	actionsA := d.actions[a]
	actionsB := d.actions[b]
	if len(actionsA) < d.cfg.MinActions || len(actionsB) < d.cfg.MinActions {
		return 0
	}

	coincidence := int64(d.cfg.CoincidenceWindow / time.Millisecond)
	matches, comparisons := 0, 0
	for _, ra := range actionsA {
		for _, rb := range actionsB {
			if ra.Kind != rb.Kind {
				continue
			}
			diff := ra.Time - rb.Time
			if diff < 0 {
				diff = -diff
			}
			if diff <= coincidence {
				matches++
			}
			comparisons++
		}
	}
	timing := 0.0
	if comparisons > 0 {
		timing = float64(matches) / float64(comparisons)
	}

	histogram := cosine(histogramOf(actionsA), histogramOf(actionsB))

	heights := jaccard(heightsOf(actionsA), heightsOf(actionsB))

	score := 0.5*timing + 0.3*histogram + 0.2*heights
	d.cache.Add(key, score)
	return score
}

func histogramOf(actions []Action) []float64 {
	h := make([]float64, actionKinds)
	for _, a := range actions {
		h[a.Kind]++
	}
	floats.Scale(1/float64(len(actions)), h)
	return h
}

func cosine(a, b []float64) float64 {
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

func heightsOf(actions []Action) map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(actions))
	for _, a := range actions {
		set[a.Height] = struct{}{}
	}
	return set
}

func jaccard(a, b map[uint64]struct{}) float64 {
	intersection := 0
	for h := range a {
		if _, ok := b[h]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// DetectGroups merges identities whose pairwise correlation exceeds the
// threshold into groups via union-find.
// Detection is rate-limited; within the interval the last result is
// returned.
func (d *Detector) DetectGroups(now int64) []ident.IDs {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.actions) < d.cfg.MinPopulation {
		return nil
	}
	interval := int64(d.cfg.RecomputeInterval / time.Second)
	if d.lastDetect > 0 && now-d.lastDetect < interval {
		return d.groups
	}
	d.lastDetect = now
	d.cache.Purge()

	ids := make(ident.IDs, 0, len(d.actions))
	for id := range d.actions {
		ids = append(ids, id)
	}
	ids.Sort()

	uf := newUnionFind(len(ids))
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if d.correlation(ids[i], ids[j]) >= d.cfg.Threshold {
				uf.union(i, j)
			}
		}
	}

	components := make(map[int]ident.IDs)
	for i, id := range ids {
		root := uf.find(i)
		components[root] = append(components[root], id)
	}

	d.groups = nil
	for _, members := range components {
		if len(members) < 2 {
			continue
		}
		members.Sort()
		d.groups = append(d.groups, members)
	}
	sort.Slice(d.groups, func(i, j int) bool {
		return d.groups[i][0].Less(d.groups[j][0])
	})

	if len(d.groups) > 0 {
		total := 0
		for _, g := range d.groups {
			total += len(g)
		}
		d.logger.Warn("correlated groups detected",
			zap.Int("groups", len(d.groups)),
			zap.Int("identities", total))
	}
	return d.groups
}

// detectFingerprintGroups flags groups by deployment-time clustering and
// profile-shape similarity, independent of action timing.
func (d *Detector) detectFingerprintGroups(views map[ident.ID]FingerprintView) []ident.IDs {
	if len(views) < d.cfg.MinPopulation {
		return nil
	}

	ids := make(ident.IDs, 0, len(views))
	for id := range views {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := views[ids[i]], views[ids[j]]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return ids[i].Less(ids[j])
	})

	// Batch by creation time first.
	window := int64(d.cfg.CreationWindow / time.Second)
	var batches []ident.IDs
	var batch ident.IDs
	var batchStart int64
	for _, id := range ids {
		created := views[id].CreatedAt
		switch {
		case len(batch) == 0:
			batch = ident.IDs{id}
			batchStart = created
		case created-batchStart <= window:
			batch = append(batch, id)
		default:
			if len(batch) >= d.cfg.MinGroupSize {
				batches = append(batches, batch)
			}
			batch = ident.IDs{id}
			batchStart = created
		}
	}
	if len(batch) >= d.cfg.MinGroupSize {
		batches = append(batches, batch)
	}

	var flagged []ident.IDs
	for _, members := range batches {
		longevity := make([]float64, len(members))
		for i, id := range members {
			longevity[i] = views[id].Longevity
		}
		mean := stat.Mean(longevity, nil)
		variance := stat.Variance(longevity, nil)
		if mean <= d.cfg.HighLongevity || variance >= d.cfg.LowVariance {
			continue
		}

		similarity, pairs := 0.0, 0
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				similarity += cosine(views[members[i]].Shape, views[members[j]].Shape)
				pairs++
			}
		}
		if pairs == 0 || similarity/float64(pairs) <= d.cfg.ShapeSimilarity {
			continue
		}

		flagged = append(flagged, members)
		d.logger.Warn("fingerprint group flagged",
			zap.Int("members", len(members)),
			zap.Float64("longevity", mean),
			zap.Float64("variance", variance))
	}
	return flagged
}

// ApplyCaps scales down group members so no detected group holds more than
// the cap share of the original total weight.
// The correlation cap is applied first; the fingerprint cap multiplies on
// top of it and never loosens the first one.
func (d *Detector) ApplyCaps(scores map[ident.ID]float64, views map[ident.ID]FingerprintView, now int64) map[ident.ID]float64 {
	result := make(map[ident.ID]float64, len(scores))
	total := 0.0
	for id, s := range scores {
		result[id] = s
		total += s
	}
	if total == 0 {
		return result
	}

	capGroups := func(groups []ident.IDs) {
		for _, members := range groups {
			groupTotal := 0.0
			for _, id := range members {
				groupTotal += result[id]
			}
			if groupTotal <= d.cfg.GroupCap*total {
				continue
			}
			factor := d.cfg.GroupCap * total / groupTotal
			for _, id := range members {
				result[id] *= factor
			}
			d.logger.Warn("group cap applied",
				zap.Int("members", len(members)),
				zap.Float64("factor", factor))
		}
	}

	capGroups(d.DetectGroups(now))

	// Flagged fingerprint groups are capped as one combined pool: splitting
	// into many small groups must not raise the total suspected share.
	suspected := ident.NewIDSet()
	for _, members := range d.detectFingerprintGroups(views) {
		suspected.Add(members...)
	}
	if len(suspected) > 0 {
		capGroups([]ident.IDs{suspected.Slice()})
	}

	return result
}
