package service

import (
	"sort"
	"strconv"

	"cohabisafe/internal/catalog"
	"cohabisafe/internal/domain"
)

// Labeler maps a trait-score vector to a human-readable descriptor.
// Implementations must be deterministic for a given vector; the policy
// itself is replaceable.
type Labeler interface {
	Label(perTrait map[string]float64) string
}

// ReverseTransform inverts a raw likert value v on a 1..max scale. The
// transform is an involution: applying it twice returns v.
func ReverseTransform(v float64, max int) float64 {
	return float64(max+1) - v
}

// ComputeTraits aggregates answers from the catalog's scored sections
// into per-trait arithmetic means. Skipped questions are excluded even
// when an earlier answer is still on record, and answers that do not
// parse as numbers contribute nothing.
func ComputeTraits(cat *catalog.Catalog, answersBySection map[string]map[string]domain.AnswerValue) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, sectionID := range cat.ScoredSections() {
		sec, err := cat.Section(sectionID)
		if err != nil {
			continue
		}
		answers := answersBySection[sectionID]
		skipped := DeriveSkipState(answers, sec.SkipRules)
		for _, q := range sec.Questions {
			if q.Trait == "" || skipped[q.ID] {
				continue
			}
			value, ok := answers[q.ID]
			if !ok || !value.Answered() || value.IsSet() {
				continue
			}
			raw, err := strconv.ParseFloat(value.Scalar, 64)
			if err != nil {
				continue
			}
			if q.ReverseScored {
				raw = ReverseTransform(raw, q.LikertMax)
			}
			sums[q.Trait] += raw
			counts[q.Trait]++
		}
	}

	perTrait := make(map[string]float64, len(sums))
	for trait, sum := range sums {
		perTrait[trait] = sum / float64(counts[trait])
	}
	return perTrait
}

// ThresholdLabeler is the default label policy: an adjective from the
// stability traits plus a noun from the social traits, producing
// descriptors like "Reliable Explorer".
type ThresholdLabeler struct{}

func (ThresholdLabeler) Label(perTrait map[string]float64) string {
	return labelAdjective(perTrait) + " " + labelNoun(perTrait)
}

func labelAdjective(perTrait map[string]float64) string {
	switch {
	case traitOrMidpoint(perTrait, domain.TraitConscientiousness) >= 3.5:
		return "Reliable"
	case traitOrMidpoint(perTrait, domain.TraitNeuroticism) <= 2.5:
		return "Steady"
	default:
		return "Easygoing"
	}
}

func labelNoun(perTrait map[string]float64) string {
	// Highest social trait wins; ties break on the fixed OCEAN order so
	// the same vector always yields the same label.
	candidates := []string{domain.TraitOpenness, domain.TraitExtraversion, domain.TraitAgreeableness}
	sort.SliceStable(candidates, func(i, j int) bool {
		return traitOrMidpoint(perTrait, candidates[i]) > traitOrMidpoint(perTrait, candidates[j])
	})
	top := candidates[0]
	if traitOrMidpoint(perTrait, top) < 3.5 {
		return "Homebody"
	}
	switch top {
	case domain.TraitOpenness:
		return "Explorer"
	case domain.TraitExtraversion:
		return "Connector"
	default:
		return "Harmonizer"
	}
}

// traitOrMidpoint treats traits the catalog never fed as neutral.
func traitOrMidpoint(perTrait map[string]float64, trait string) float64 {
	if v, ok := perTrait[trait]; ok {
		return v
	}
	return 3.0
}
