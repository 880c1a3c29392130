package tier

// Tier is a coarse participation class used to partition the weighted lottery.
type Tier uint8

const (
	// New is an identity without an established participation record.
	New Tier = iota
	// Light is a partially established participant.
	Light
	// Full is an established full operator.
	Full

	// Count of tiers.
	Count = 3
)

func (t Tier) String() string {
	switch t {
	case New:
		return "new"
	case Light:
		return "light"
	case Full:
		return "full"
	}
	return "unknown"
}
