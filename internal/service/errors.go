package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAssessmentNotFound   = errors.New("assessment not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrIncompleteAssessment = errors.New("assessment not complete")
	ErrConsentRequired      = errors.New("background consent required")
	ErrInvalidSSN           = errors.New("ssn must be 9 digits")
	ErrInvalidInput         = errors.New("invalid input")
)

// ValidationError reports that a section is below its required-answer
// threshold. It carries the unanswered live question ids so the caller
// can highlight them; flow state is left unchanged when it is returned.
type ValidationError struct {
	Section    string
	Unanswered []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("section %s below threshold: %d question(s) unanswered", e.Section, len(e.Unanswered))
}

// InvalidQuestionError reports submitted keys that are not live catalog
// questions for the target section. Valid keys in the same payload are
// still applied; only the offending keys are rejected.
type InvalidQuestionError struct {
	Rejected []string
}

func (e *InvalidQuestionError) Error() string {
	return fmt.Sprintf("unknown question id(s): %s", strings.Join(e.Rejected, ", "))
}
