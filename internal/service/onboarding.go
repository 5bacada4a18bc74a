package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cohabisafe/internal/domain"
	"cohabisafe/internal/repository"
)

// OnboardingService handles the funnel steps around the assessment:
// account setup before it and the background-check step after it.
type OnboardingService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	assessments *AssessmentService
	bcryptCost  int
}

func NewOnboardingService(logger *zap.Logger, users repository.UserRepository, assessments *AssessmentService, bcryptCost int) *OnboardingService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &OnboardingService{
		logger:      logger,
		users:       users,
		assessments: assessments,
		bcryptCost:  bcryptCost,
	}
}

type AccountSetupInput struct {
	Email    string
	FullName string
	Phone    string
}

// AccountSetupResult pairs the user row with the assessment the quiz
// step should drive next.
type AccountSetupResult struct {
	User       domain.User       `json:"user"`
	Assessment domain.Assessment `json:"assessment"`
}

// CreateAccount creates the renter record, or refreshes contact details
// when the email is already known, and opens a fresh assessment at the
// catalog's first section.
func (s *OnboardingService) CreateAccount(ctx context.Context, input AccountSetupInput) (AccountSetupResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	fullName := strings.TrimSpace(input.FullName)
	phone := strings.TrimSpace(input.Phone)
	if email == "" || fullName == "" {
		return AccountSetupResult{}, ErrInvalidInput
	}

	now := time.Now().UTC()
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.UpdateContact(ctx, user.ID, fullName, phone, now); err != nil {
			return AccountSetupResult{}, fmt.Errorf("update contact: %w", err)
		}
		user.FullName = fullName
		user.Phone = phone
	case errors.Is(err, pgx.ErrNoRows):
		user = domain.User{
			ID:        uuid.NewString(),
			Email:     email,
			FullName:  fullName,
			Phone:     phone,
			Role:      domain.RoleRenter,
			Status:    domain.UserStatusSetup,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return AccountSetupResult{}, fmt.Errorf("create user: %w", err)
		}
	default:
		return AccountSetupResult{}, fmt.Errorf("lookup user: %w", err)
	}

	assessment, err := s.assessments.Start(ctx, user.ID)
	if err != nil {
		return AccountSetupResult{}, err
	}
	user.Status = domain.UserStatusAssessing

	s.logger.Info("account ready",
		zap.String("user_id", user.ID),
		zap.String("assessment_id", assessment.ID))
	return AccountSetupResult{User: user, Assessment: assessment}, nil
}

// ResumeAssessment returns the user's most recent assessment for
// funnel re-entry.
func (s *OnboardingService) ResumeAssessment(ctx context.Context, userID string) (domain.Assessment, error) {
	if _, err := s.loadUser(ctx, userID); err != nil {
		return domain.Assessment{}, err
	}
	return s.assessments.LatestForUser(ctx, userID)
}

// RecordConsent stores the background-check consent timestamp. The
// step is gated on a computed trait profile: the quiz comes first.
func (s *OnboardingService) RecordConsent(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.Status != domain.UserStatusProfiled && user.Status != domain.UserStatusConsented {
		return domain.User{}, ErrIncompleteAssessment
	}

	now := time.Now().UTC()
	if err := s.users.SetBackgroundConsent(ctx, user.ID, now); err != nil {
		return domain.User{}, fmt.Errorf("record consent: %w", err)
	}
	user.BackgroundConsentAt = &now
	user.Status = domain.UserStatusConsented
	return user, nil
}

var ssnDigits = regexp.MustCompile(`[0-9]`)

// RecordBackgroundInfo hashes the SSN with bcrypt and stores the digest
// alongside the optional date of birth. Requires prior consent; the
// raw SSN never touches a log or the database.
func (s *OnboardingService) RecordBackgroundInfo(ctx context.Context, userID, ssn, dob string) (domain.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.BackgroundConsentAt == nil {
		return domain.User{}, ErrConsentRequired
	}

	digits := strings.Join(ssnDigits.FindAllString(ssn, -1), "")
	if len(digits) != 9 {
		return domain.User{}, ErrInvalidSSN
	}

	var dobPtr *time.Time
	if strings.TrimSpace(dob) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(dob))
		if err != nil {
			return domain.User{}, fmt.Errorf("%w: date of birth must be YYYY-MM-DD", ErrInvalidInput)
		}
		dobPtr = &parsed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(digits), s.bcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash ssn: %w", err)
	}

	now := time.Now().UTC()
	if err := s.users.SetBackgroundInfo(ctx, user.ID, string(hash), dobPtr, now); err != nil {
		return domain.User{}, fmt.Errorf("record background info: %w", err)
	}
	user.SSNHash = string(hash)
	user.DateOfBirth = dobPtr
	user.Status = domain.UserStatusInfoReady
	return user, nil
}

func (s *OnboardingService) loadUser(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
