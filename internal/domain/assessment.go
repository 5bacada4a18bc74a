package domain

import "time"

const (
	AssessmentStatusInProgress = "in_progress"
	AssessmentStatusComplete   = "complete"
)

// SectionComplete is the terminal section marker. Once an assessment's
// current section reaches it, advancing further is a no-op.
const SectionComplete = "complete"

// Assessment is one user's run through the question catalog. Current
// section state lives here, per assessment, never in process globals.
type Assessment struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	CatalogVersion string    `json:"catalog_version"`
	CurrentSection string    `json:"current_section"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Completed reports whether the assessment has reached the terminal
// section.
func (a Assessment) Completed() bool {
	return a.CurrentSection == SectionComplete
}
