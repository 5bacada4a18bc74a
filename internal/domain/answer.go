package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AnswerValue is either a single scalar (radio, slider, free text) or a
// set of option values (checkbox groups). Exactly one of the two forms
// is populated; multi-choice answers are always the set form.
type AnswerValue struct {
	Scalar string
	Set    []string
}

// ScalarValue builds a scalar answer.
func ScalarValue(v string) AnswerValue {
	return AnswerValue{Scalar: v}
}

// SetValue builds a set answer, dropping duplicate entries while
// preserving first-seen order.
func SetValue(values ...string) AnswerValue {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return AnswerValue{Set: out}
}

// IsSet reports whether the value is the set form.
func (v AnswerValue) IsSet() bool {
	return v.Set != nil
}

// Answered reports whether the value counts as an answer for progress
// purposes. An empty set and a blank scalar are both "unanswered".
func (v AnswerValue) Answered() bool {
	if v.IsSet() {
		return len(v.Set) > 0
	}
	return strings.TrimSpace(v.Scalar) != ""
}

// MarshalJSON encodes the set form as a JSON array and the scalar form
// as a JSON string, mirroring what the quiz client submits.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.IsSet() {
		return json.Marshal(v.Set)
	}
	return json.Marshal(v.Scalar)
}

// UnmarshalJSON accepts either a JSON string or an array of strings.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var scalar string
	if err := json.Unmarshal(data, &scalar); err == nil {
		*v = ScalarValue(scalar)
		return nil
	}
	var set []string
	if err := json.Unmarshal(data, &set); err == nil {
		*v = SetValue(set...)
		return nil
	}
	return fmt.Errorf("answer value must be a string or an array of strings")
}

// AnswerRecord is one stored answer. Records are only ever overwritten
// by a later merge for the same question, never deleted.
type AnswerRecord struct {
	AssessmentID string      `json:"assessment_id"`
	QuestionID   string      `json:"question_id"`
	Value        AnswerValue `json:"value"`
	RecordedAt   time.Time   `json:"recorded_at"`
}
