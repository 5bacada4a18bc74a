package domain

import "time"

// Funnel status values, in the order a renter moves through them.
const (
	UserStatusSetup     = "setup"
	UserStatusAssessing = "assessing"
	UserStatusProfiled  = "profiled"
	UserStatusConsented = "consented"
	UserStatusInfoReady = "info_ready"
)

const (
	RoleRenter   = "renter"
	RoleLandlord = "landlord"
)

// User is a funnel participant. The SSN is never stored in the clear;
// only the bcrypt digest captured during the background-check step.
type User struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	FullName            string     `json:"full_name"`
	Phone               string     `json:"phone,omitempty"`
	Role                string     `json:"role"`
	Status              string     `json:"status"`
	BackgroundConsentAt *time.Time `json:"background_consent_at,omitempty"`
	SSNHash             string     `json:"-"`
	DateOfBirth         *time.Time `json:"date_of_birth,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
