package service

import (
	"cohabisafe/internal/catalog"
	"cohabisafe/internal/domain"
)

// SectionProgress is the answered-fraction view of one section. Live is
// the denominator after skipped questions are excluded; Unanswered
// lists live questions with no usable answer, in catalog order.
type SectionProgress struct {
	Section    string   `json:"section"`
	Answered   int      `json:"answered"`
	Live       int      `json:"live"`
	Fraction   float64  `json:"fraction"`
	Threshold  float64  `json:"threshold"`
	Complete   bool     `json:"complete"`
	Unanswered []string `json:"unanswered_ids"`
}

// EvaluateSection computes progress for one section from a snapshot of
// its answers. Skip state is re-derived from the same snapshot, so a
// skipped question never appears in numerator, denominator, or the
// unanswered list. A section whose every question is skipped is
// vacuously complete.
func EvaluateSection(sec catalog.SectionSpec, answers map[string]domain.AnswerValue) SectionProgress {
	skipped := DeriveSkipState(answers, sec.SkipRules)

	progress := SectionProgress{
		Section:   sec.ID,
		Threshold: sec.Threshold,
	}
	for _, q := range sec.Questions {
		if skipped[q.ID] {
			continue
		}
		progress.Live++
		if value, ok := answers[q.ID]; ok && value.Answered() {
			progress.Answered++
		} else {
			progress.Unanswered = append(progress.Unanswered, q.ID)
		}
	}

	if progress.Live == 0 {
		progress.Fraction = 1
		progress.Complete = true
		return progress
	}
	progress.Fraction = float64(progress.Answered) / float64(progress.Live)
	progress.Complete = progress.Fraction >= sec.Threshold
	return progress
}
