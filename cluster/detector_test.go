package cluster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/inter/ident"
)

const (
	t0   = int64(1_700_000_000)
	t0ms = t0 * 1000
)

func newTestDetector() *Detector {
	return New(LiteConfig(), zap.NewNop())
}

// lockstep records a tight burst of n actions shifted by offsetMs from a
// shared schedule, so zero offset means perfectly coordinated behavior.
func lockstep(d *Detector, id ident.ID, offsetMs int64, n int) {
	for i := 0; i < n; i++ {
		d.RecordAction(id, Action{
			Kind:   ProduceBlock,
			Time:   t0ms + int64(i)*10 + offsetMs,
			Height: uint64(i),
			Digest: hash.FakeHash(int64(i)),
		})
	}
}

func TestCorrelationExtremes(t *testing.T) {
	d := newTestDetector()
	a := ident.FakeID(1)
	b := ident.FakeID(2)
	c := ident.FakeID(3)

	lockstep(d, a, 0, 10)
	lockstep(d, b, 50, 10) // inside the 100ms coincidence window

	// Independent schedule, disjoint heights, different mix of actions.
	for i := 0; i < 10; i++ {
		d.RecordAction(c, Action{
			Kind:   Vote,
			Time:   t0ms + int64(i)*67_000 + 31_000,
			Height: uint64(1000 + i),
			Digest: hash.FakeHash(int64(100 + i)),
		})
	}

	coordinated := d.Correlation(a, b)
	independent := d.Correlation(a, c)

	assert.Greater(t, coordinated, 0.9)
	assert.Less(t, independent, 0.3)
	// Symmetric by construction.
	assert.Equal(t, coordinated, d.Correlation(b, a))
}

func TestCorrelationNeedsHistory(t *testing.T) {
	d := newTestDetector()
	a := ident.FakeID(1)
	b := ident.FakeID(2)

	lockstep(d, a, 0, 3)
	lockstep(d, b, 0, 3)

	assert.Equal(t, 0.0, d.Correlation(a, b))
}

func TestRollingWindow(t *testing.T) {
	d := newTestDetector()
	id := ident.FakeID(1)

	d.RecordAction(id, Action{Kind: ProduceBlock, Time: t0ms})
	d.RecordAction(id, Action{Kind: ProduceBlock, Time: t0ms + 25*3600*1000})

	d.mu.Lock()
	defer d.mu.Unlock()
	require.Len(t, d.actions[id], 1)
	assert.Equal(t, t0ms+25*3600*1000, d.actions[id][0].Time)
}

func TestDetectGroups(t *testing.T) {
	d := newTestDetector()
	clones := ident.IDs{ident.FakeID(1), ident.FakeID(2), ident.FakeID(3)}
	honest := ident.FakeID(4)

	for _, id := range clones {
		lockstep(d, id, 0, 10)
	}
	for i := 0; i < 10; i++ {
		d.RecordAction(honest, Action{
			Kind:   Vote,
			Time:   t0ms + int64(i)*91_000 + 13_000,
			Height: uint64(5000 + i),
		})
	}

	groups := d.DetectGroups(t0 + 3600)
	require.Len(t, groups, 1)
	assert.Equal(t, clones.Set(), groups[0].Set())
}

func TestDetectGroupsRateLimit(t *testing.T) {
	cfg := LiteConfig()
	cfg.RecomputeInterval = 30 * time.Minute
	d := New(cfg, zap.NewNop())

	a := ident.FakeID(1)
	b := ident.FakeID(2)
	lockstep(d, a, 0, 10)
	lockstep(d, b, 0, 10)

	first := d.DetectGroups(t0)
	require.Len(t, first, 1)

	// New independent activity is invisible until the interval elapses.
	c := ident.FakeID(3)
	lockstep(d, c, 0, 10)

	within := d.DetectGroups(t0 + 60)
	assert.Equal(t, first, within)

	after := d.DetectGroups(t0 + 1900)
	require.Len(t, after, 1)
	assert.Len(t, after[0], 3)
}

func TestApplyCapsBoundsCloneShare(t *testing.T) {
	d := newTestDetector()
	clones := ident.IDs{ident.FakeID(1), ident.FakeID(2), ident.FakeID(3), ident.FakeID(4), ident.FakeID(5)}
	honest := ident.IDs{ident.FakeID(6), ident.FakeID(7)}

	for _, id := range clones {
		lockstep(d, id, 0, 10)
	}
	for n, id := range honest {
		for i := 0; i < 10; i++ {
			d.RecordAction(id, Action{
				Kind:   Vote,
				Time:   t0ms + int64(i)*83_000 + int64(n)*17_000,
				Height: uint64(9000 + 100*n + i),
			})
		}
	}

	scores := map[ident.ID]float64{}
	for _, id := range clones {
		scores[id] = 0.2
	}
	for _, id := range honest {
		scores[id] = 0.1
	}
	total := 5*0.2 + 2*0.1

	capped := d.ApplyCaps(scores, nil, t0+3600)

	cloneShare := 0.0
	for _, id := range clones {
		cloneShare += capped[id]
	}
	assert.InDelta(t, 0.33*total, cloneShare, 1e-9)

	// Honest identities are untouched.
	for _, id := range honest {
		assert.Equal(t, 0.1, capped[id])
	}
}

func TestFingerprintCapCatchesJitter(t *testing.T) {
	d := newTestDetector()
	clones := ident.IDs{ident.FakeID(1), ident.FakeID(2), ident.FakeID(3)}
	honest := ident.FakeID(4)

	// Enough jitter to stay under the pairwise correlation threshold.
	for n, id := range clones {
		lockstep(d, id, int64(n)*300, 10)
	}
	for i := 0; i < 10; i++ {
		d.RecordAction(honest, Action{
			Kind:   Vote,
			Time:   t0ms + int64(i)*79_000,
			Height: uint64(7000 + i),
		})
	}
	assert.Empty(t, d.DetectGroups(t0+3600))

	shape := []float64{0.8, 0.8, 0.2, 0.8, 0.1}
	views := map[ident.ID]FingerprintView{
		honest: {CreatedAt: t0 - 200*86400, Longevity: 0.3, Shape: []float64{0.1, 0.5, 0.4, 0.2, 0.6}},
	}
	for n, id := range clones {
		views[id] = FingerprintView{
			CreatedAt: t0 - 30*86400 + int64(n)*3600,
			Longevity: 0.8 + float64(n)*0.01,
			Shape:     shape,
		}
	}

	scores := map[ident.ID]float64{honest: 0.3}
	for _, id := range clones {
		scores[id] = 0.3
	}
	total := 1.2

	capped := d.ApplyCaps(scores, views, t0+3600)

	cloneShare := 0.0
	for _, id := range clones {
		cloneShare += capped[id]
	}
	assert.InDelta(t, 0.33*total, cloneShare, 1e-9)
	assert.Equal(t, 0.3, capped[honest])
}
