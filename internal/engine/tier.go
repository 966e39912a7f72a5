package engine

// Action tier selected by the reconciliation engine.
//
// Tiers are ordered by destructiveness: a higher tier's action implies
// every lower tier's action also runs. The ordering of the constants is
// load-bearing for the comparison in classify.
type Tier int

const (
	TierNone Tier = iota
	TierReintegrate
	TierRecreate
	TierRebuild
)

// Returns the tier's name.
func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierReintegrate:
		return "reintegrate"
	case TierRecreate:
		return "recreate"
	case TierRebuild:
		return "rebuild"
	default:
		return "unknown"
	}
}

// Returns the highest tier whose hash differs from the record.
func classify(image, container, integration bool) Tier {
	switch {
	case image:
		return TierRebuild
	case container:
		return TierRecreate
	case integration:
		return TierReintegrate
	default:
		return TierNone
	}
}
