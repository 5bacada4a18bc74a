package domain

import "time"

// Big Five trait names used across the catalog and scoring.
const (
	TraitOpenness          = "openness"
	TraitConscientiousness = "conscientiousness"
	TraitExtraversion      = "extraversion"
	TraitAgreeableness     = "agreeableness"
	TraitNeuroticism       = "neuroticism"
)

// TraitOrder is the canonical OCEAN ordering, used wherever the trait
// map has to become a vector (storage, matching).
var TraitOrder = []string{
	TraitOpenness,
	TraitConscientiousness,
	TraitExtraversion,
	TraitAgreeableness,
	TraitNeuroticism,
}

// TraitProfile is the aggregated result of a completed assessment.
// Immutable once computed; a resubmission inserts a new profile that
// supersedes this one rather than mutating delivered scores.
type TraitProfile struct {
	ID           string             `json:"id"`
	AssessmentID string             `json:"assessment_id"`
	PerTrait     map[string]float64 `json:"per_trait"`
	Label        string             `json:"label"`
	ComputedAt   time.Time          `json:"computed_at"`
}
