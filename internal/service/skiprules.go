package service

import (
	"strconv"

	"cohabisafe/internal/catalog"
	"cohabisafe/internal/domain"
)

// DeriveSkipState recomputes which questions are currently skipped from
// the answers and rules alone. Nothing is persisted: skip state is a
// pure function of its inputs, so changing a trigger answer back
// un-skips the targets on the next derivation. Rule targets are not
// re-evaluated as triggers; skip propagation is single-hop.
func DeriveSkipState(answers map[string]domain.AnswerValue, rules []catalog.SkipRule) map[string]bool {
	skipped := make(map[string]bool, len(rules))
	for _, rule := range rules {
		value, ok := answers[rule.Trigger]
		if !ok || !value.Answered() {
			continue
		}
		if !evalPredicate(rule.Predicate, value) {
			continue
		}
		for _, target := range rule.Targets {
			skipped[target] = true
		}
	}
	return skipped
}

// evalPredicate compares the trigger answer against the rule's data
// predicate. Ordering operators compare numerically and are false for
// non-numeric answers; eq/ne fall back to string comparison. Set-form
// answers match when any member satisfies the predicate.
func evalPredicate(p catalog.SkipPredicate, value domain.AnswerValue) bool {
	if value.IsSet() {
		for _, member := range value.Set {
			if evalScalar(p, member) {
				return true
			}
		}
		return false
	}
	return evalScalar(p, value.Scalar)
}

func evalScalar(p catalog.SkipPredicate, raw string) bool {
	switch p.Op {
	case catalog.OpIn:
		for _, candidate := range p.AnyOf {
			if raw == candidate {
				return true
			}
		}
		return false
	case catalog.OpEq, catalog.OpNe:
		equal := raw == p.Value
		if got, want, ok := parsePair(raw, p.Value); ok {
			equal = got == want
		}
		if p.Op == catalog.OpNe {
			return !equal
		}
		return equal
	case catalog.OpGt, catalog.OpGte, catalog.OpLt, catalog.OpLte:
		got, want, ok := parsePair(raw, p.Value)
		if !ok {
			return false
		}
		switch p.Op {
		case catalog.OpGt:
			return got > want
		case catalog.OpGte:
			return got >= want
		case catalog.OpLt:
			return got < want
		default:
			return got <= want
		}
	}
	return false
}

func parsePair(a, b string) (float64, float64, bool) {
	x, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, 0, false
	}
	y, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, 0, false
	}
	return x, y, true
}
