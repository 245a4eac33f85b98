package entities

// ScoringConfig holds the multipliers of the primary relevance score:
//
//	score = sectorBoost × baseRelevance × specificityBoost × scale
type ScoringConfig struct {
	SectorBoost     float64
	SpecificBoost   float64
	SubheadingBoost float64
	GenericBoost    float64
	Scale           float64
}

// DefaultScoringConfig returns the production weights
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		SectorBoost:     3.0,
		SpecificBoost:   2.0,
		SubheadingBoost: 1.5,
		GenericBoost:    1.0,
		Scale:           100,
	}
}

// SpecificityBoost rewards fully specific codes over padded headings
func (c ScoringConfig) SpecificityBoost(code string) float64 {
	switch CodeSpecificity(code) {
	case SpecificityPosition:
		return c.GenericBoost
	case SpecificitySubheading:
		return c.SubheadingBoost
	default:
		return c.SpecificBoost
	}
}

// SectorMultiplier is SectorBoost when a real sector was requested and matches
func (c ScoringConfig) SectorMultiplier(candidate, requested Sector) float64 {
	if !requested.IsGeneral() && candidate == requested {
		return c.SectorBoost
	}
	return 1.0
}

// Score combines a base relevance in [0,1] with the boosts
func (c ScoringConfig) Score(base float64, code string, candidate, requested Sector) float64 {
	return c.SectorMultiplier(candidate, requested) * base * c.SpecificityBoost(code) * c.Scale
}
