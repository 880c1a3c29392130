package engine

import (
	"github.com/chronos-foundation/chronos-base/cluster"
	"github.com/chronos-foundation/chronos-base/eligibility"
	"github.com/chronos-foundation/chronos-base/eventcheck/hbcheck"
	"github.com/chronos-foundation/chronos-base/inter/idx"
	"github.com/chronos-foundation/chronos-base/reputation"
	"github.com/chronos-foundation/chronos-base/trustgraph"
)

// Config bundles the configs of every subsystem the engine coordinates.
type Config struct {
	Reputation  reputation.Config
	Trust       trustgraph.Config
	Cluster     cluster.Config
	Eligibility eligibility.Config
	Heartbeats  hbcheck.Config

	// LightSeq is the accepted-heartbeat count at which an identity leaves
	// the New tier.
	LightSeq idx.Seq
	// FullSeq is the accepted-heartbeat count at which an identity becomes
	// a Full participant.
	FullSeq idx.Seq

	// VoucherPenalty scales the profiles of parties who vouched for a
	// slashed identity.
	VoucherPenalty float64
	// AssociatePenalty scales the profiles of parties the slashed identity
	// vouched for.
	AssociatePenalty float64
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Reputation:  reputation.DefaultConfig(),
		Trust:       trustgraph.DefaultConfig(),
		Cluster:     cluster.DefaultConfig(),
		Eligibility: eligibility.DefaultConfig(),
		Heartbeats:  hbcheck.DefaultConfig(),

		LightSeq: 100,
		FullSeq:  1000,

		VoucherPenalty:   0.5,
		AssociatePenalty: 0.8,
	}
}

// LiteConfig returns a scaled-down configuration for tests.
func LiteConfig() Config {
	cfg := DefaultConfig()
	cfg.Reputation = reputation.LiteConfig()
	cfg.Cluster = cluster.LiteConfig()
	cfg.Eligibility = eligibility.LiteConfig()
	cfg.LightSeq = 2
	cfg.FullSeq = 5
	return cfg
}
