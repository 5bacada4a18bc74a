package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"cohabisafe/internal/catalog"
	"cohabisafe/internal/domain"
	"cohabisafe/internal/repository"
)

// AssessmentService orchestrates the assessment flow: it reads the
// catalog, delegates answer persistence to the answer store, derives
// skip state, gates section advancement on the progress threshold, and
// computes the trait profile when the final section is left.
type AssessmentService struct {
	catalog     *catalog.Catalog
	assessments repository.AssessmentRepository
	answers     repository.AnswerRepository
	profiles    repository.ProfileRepository
	users       repository.UserRepository
	labeler     Labeler
	dedupe      AutosaveDeduper
	logger      *zap.Logger
}

func NewAssessmentService(
	cat *catalog.Catalog,
	assessments repository.AssessmentRepository,
	answers repository.AnswerRepository,
	profiles repository.ProfileRepository,
	users repository.UserRepository,
	labeler Labeler,
	dedupe AutosaveDeduper,
	logger *zap.Logger,
) *AssessmentService {
	if labeler == nil {
		labeler = ThresholdLabeler{}
	}
	return &AssessmentService{
		catalog:     cat,
		assessments: assessments,
		answers:     answers,
		profiles:    profiles,
		users:       users,
		labeler:     labeler,
		dedupe:      dedupe,
		logger:      logger,
	}
}

// SubmitResult is the autosave response: whether the merge was applied
// and the section's progress after it.
type SubmitResult struct {
	Applied  bool            `json:"applied"`
	Rejected []string        `json:"rejected_ids,omitempty"`
	Progress SectionProgress `json:"progress"`
}

// AdvanceResult reports where the assessment landed. Profile is set
// only once the assessment is complete.
type AdvanceResult struct {
	Section string               `json:"section"`
	Profile *domain.TraitProfile `json:"profile,omitempty"`
}

// Start opens a fresh assessment at the catalog's first section and
// moves the owning user into the assessing stage.
func (s *AssessmentService) Start(ctx context.Context, userID string) (domain.Assessment, error) {
	now := time.Now().UTC()
	assessment := domain.Assessment{
		ID:             uuid.NewString(),
		UserID:         userID,
		CatalogVersion: s.catalog.Version,
		CurrentSection: s.catalog.FirstSection(),
		Status:         domain.AssessmentStatusInProgress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.assessments.Create(ctx, assessment); err != nil {
		return domain.Assessment{}, fmt.Errorf("create assessment: %w", err)
	}
	if err := s.users.UpdateStatus(ctx, userID, domain.UserStatusAssessing, now); err != nil {
		s.logger.Warn("user status update failed", zap.Error(err), zap.String("user_id", userID))
	}
	return assessment, nil
}

// SubmitPartial merges an autosave payload into the answer store.
// Unknown or off-section keys are rejected individually via
// InvalidQuestionError while the remaining keys are still applied.
// A repeated save token short-circuits the merge so retried client
// requests stay idempotent.
func (s *AssessmentService) SubmitPartial(ctx context.Context, assessmentID, sectionID string, partial map[string]domain.AnswerValue, saveToken string) (SubmitResult, error) {
	assessment, err := s.loadAssessment(ctx, assessmentID)
	if err != nil {
		return SubmitResult{}, err
	}
	sec, err := s.catalog.Section(sectionID)
	if err != nil {
		return SubmitResult{}, err
	}

	valid, rejected := s.normalizePartial(sec, partial)

	duplicate := saveToken != "" && s.dedupe != nil && s.dedupe.Seen(ctx, assessmentID+":"+saveToken)
	if duplicate {
		s.logger.Debug("duplicate autosave token, merge skipped",
			zap.String("assessment_id", assessmentID), zap.String("token", saveToken))
	} else if err := s.answers.Merge(ctx, assessment.ID, valid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubmitResult{}, ErrAssessmentNotFound
		}
		return SubmitResult{}, fmt.Errorf("merge answers: %w", err)
	}

	progress, err := s.sectionProgress(ctx, assessment.ID, sec)
	if err != nil {
		return SubmitResult{}, err
	}

	result := SubmitResult{Applied: true, Rejected: rejected, Progress: progress}
	if len(rejected) > 0 {
		return result, &InvalidQuestionError{Rejected: rejected}
	}
	return result, nil
}

// LatestForUser returns the user's most recent assessment, so a
// returning visitor resumes where they left off.
func (s *AssessmentService) LatestForUser(ctx context.Context, userID string) (domain.Assessment, error) {
	assessment, err := s.assessments.LatestByUser(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Assessment{}, ErrAssessmentNotFound
	}
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("latest assessment: %w", err)
	}
	return assessment, nil
}

// Progress reports the answered fraction of the active section.
func (s *AssessmentService) Progress(ctx context.Context, assessmentID string) (SectionProgress, error) {
	assessment, err := s.loadAssessment(ctx, assessmentID)
	if err != nil {
		return SectionProgress{}, err
	}
	if assessment.Completed() {
		return SectionProgress{Section: domain.SectionComplete, Fraction: 1, Complete: true}, nil
	}
	sec, err := s.catalog.Section(assessment.CurrentSection)
	if err != nil {
		return SectionProgress{}, err
	}
	return s.sectionProgress(ctx, assessment.ID, sec)
}

// AdvanceSection moves the assessment to the declared successor of its
// current section, provided the threshold gate is met. Entering the
// terminal state computes and persists the trait profile; advancing a
// completed assessment is a no-op that returns the existing profile.
func (s *AssessmentService) AdvanceSection(ctx context.Context, assessmentID string) (AdvanceResult, error) {
	assessment, err := s.loadAssessment(ctx, assessmentID)
	if err != nil {
		return AdvanceResult{}, err
	}

	if assessment.Completed() {
		profile, err := s.GetProfile(ctx, assessmentID)
		if err != nil {
			return AdvanceResult{}, err
		}
		return AdvanceResult{Section: domain.SectionComplete, Profile: &profile}, nil
	}

	sec, err := s.catalog.Section(assessment.CurrentSection)
	if err != nil {
		return AdvanceResult{}, err
	}
	progress, err := s.sectionProgress(ctx, assessment.ID, sec)
	if err != nil {
		return AdvanceResult{}, err
	}
	if !progress.Complete {
		return AdvanceResult{}, &ValidationError{Section: sec.ID, Unanswered: progress.Unanswered}
	}

	next, err := s.catalog.Successor(assessment.CurrentSection)
	if err != nil {
		return AdvanceResult{}, err
	}
	now := time.Now().UTC()

	if next != "" {
		assessment.CurrentSection = next
		assessment.UpdatedAt = now
		if err := s.updateAssessment(ctx, assessment); err != nil {
			return AdvanceResult{}, err
		}
		return AdvanceResult{Section: next}, nil
	}

	// Leaving the last section: compute the profile before the state
	// flips, so a persistence failure leaves the assessment resumable.
	profile, err := s.computeProfile(ctx, assessment)
	if err != nil {
		return AdvanceResult{}, err
	}

	assessment.CurrentSection = domain.SectionComplete
	assessment.Status = domain.AssessmentStatusComplete
	assessment.UpdatedAt = now
	if err := s.updateAssessment(ctx, assessment); err != nil {
		return AdvanceResult{}, err
	}
	if err := s.users.UpdateStatus(ctx, assessment.UserID, domain.UserStatusProfiled, now); err != nil {
		s.logger.Warn("user status update failed", zap.Error(err), zap.String("user_id", assessment.UserID))
	}

	s.logger.Info("assessment complete",
		zap.String("assessment_id", assessment.ID),
		zap.String("label", profile.Label))
	return AdvanceResult{Section: domain.SectionComplete, Profile: &profile}, nil
}

// Retreat moves back one section without re-validating; users may
// always go back. Retreating from the first section is a no-op.
func (s *AssessmentService) Retreat(ctx context.Context, assessmentID string) (domain.Assessment, error) {
	assessment, err := s.loadAssessment(ctx, assessmentID)
	if err != nil {
		return domain.Assessment{}, err
	}

	var prev string
	if assessment.Completed() {
		prev = s.catalog.LastSection()
	} else {
		prev, err = s.catalog.Predecessor(assessment.CurrentSection)
		if err != nil {
			return domain.Assessment{}, err
		}
		if prev == "" {
			return assessment, nil
		}
	}

	assessment.CurrentSection = prev
	assessment.Status = domain.AssessmentStatusInProgress
	assessment.UpdatedAt = time.Now().UTC()
	if err := s.updateAssessment(ctx, assessment); err != nil {
		return domain.Assessment{}, err
	}
	return assessment, nil
}

// GetProfile returns the latest trait profile for a completed
// assessment, recomputing it if the stored row has gone missing.
func (s *AssessmentService) GetProfile(ctx context.Context, assessmentID string) (domain.TraitProfile, error) {
	assessment, err := s.loadAssessment(ctx, assessmentID)
	if err != nil {
		return domain.TraitProfile{}, err
	}
	if !assessment.Completed() {
		return domain.TraitProfile{}, ErrIncompleteAssessment
	}
	profile, err := s.profiles.LatestByAssessment(ctx, assessmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.computeProfile(ctx, assessment)
	}
	if err != nil {
		return domain.TraitProfile{}, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

// computeProfile aggregates the scored sections into a new immutable
// profile row. Every scored section must be complete; a recompute for
// the same assessment inserts a superseding row rather than mutating
// scores already handed downstream.
func (s *AssessmentService) computeProfile(ctx context.Context, assessment domain.Assessment) (domain.TraitProfile, error) {
	answersBySection := make(map[string]map[string]domain.AnswerValue)
	for _, sectionID := range s.catalog.ScoredSections() {
		sec, err := s.catalog.Section(sectionID)
		if err != nil {
			return domain.TraitProfile{}, err
		}
		snapshot, err := s.snapshotSection(ctx, assessment.ID, sec)
		if err != nil {
			return domain.TraitProfile{}, err
		}
		if !EvaluateSection(sec, snapshot).Complete {
			return domain.TraitProfile{}, ErrIncompleteAssessment
		}
		answersBySection[sectionID] = snapshot
	}

	profile := domain.TraitProfile{
		ID:           uuid.NewString(),
		AssessmentID: assessment.ID,
		PerTrait:     ComputeTraits(s.catalog, answersBySection),
		ComputedAt:   time.Now().UTC(),
	}
	profile.Label = s.labeler.Label(profile.PerTrait)

	if err := s.profiles.Insert(ctx, profile); err != nil {
		return domain.TraitProfile{}, fmt.Errorf("persist profile: %w", err)
	}
	return profile, nil
}

// normalizePartial keeps only keys that name questions in the target
// section and coerces values to the question's shape: multi-choice
// answers become deduplicated sets, single-valued questions accept a
// one-element set. Everything else is rejected by key.
func (s *AssessmentService) normalizePartial(sec catalog.SectionSpec, partial map[string]domain.AnswerValue) (map[string]domain.AnswerValue, []string) {
	valid := make(map[string]domain.AnswerValue, len(partial))
	var rejected []string
	for questionID, value := range partial {
		q, ok := s.catalog.Question(questionID)
		if !ok || q.Section != sec.ID {
			rejected = append(rejected, questionID)
			continue
		}
		if q.Kind == catalog.KindMultiChoice {
			if !value.IsSet() {
				if value.Answered() {
					value = domain.SetValue(value.Scalar)
				} else {
					value = domain.SetValue()
				}
			} else {
				value = domain.SetValue(value.Set...)
			}
			if q.MaxSelections > 0 && len(value.Set) > q.MaxSelections {
				value.Set = value.Set[:q.MaxSelections]
			}
		} else if value.IsSet() {
			if len(value.Set) > 1 {
				rejected = append(rejected, questionID)
				continue
			}
			var scalar string
			if len(value.Set) == 1 {
				scalar = value.Set[0]
			}
			value = domain.ScalarValue(scalar)
		}
		valid[questionID] = value
	}
	return valid, rejected
}

func (s *AssessmentService) sectionProgress(ctx context.Context, assessmentID string, sec catalog.SectionSpec) (SectionProgress, error) {
	snapshot, err := s.snapshotSection(ctx, assessmentID, sec)
	if err != nil {
		return SectionProgress{}, err
	}
	return EvaluateSection(sec, snapshot), nil
}

func (s *AssessmentService) snapshotSection(ctx context.Context, assessmentID string, sec catalog.SectionSpec) (map[string]domain.AnswerValue, error) {
	ids := make([]string, len(sec.Questions))
	for i, q := range sec.Questions {
		ids[i] = q.ID
	}
	snapshot, err := s.answers.Snapshot(ctx, assessmentID, ids)
	if err != nil {
		return nil, fmt.Errorf("snapshot section %s: %w", sec.ID, err)
	}
	return snapshot, nil
}

func (s *AssessmentService) loadAssessment(ctx context.Context, id string) (domain.Assessment, error) {
	assessment, err := s.assessments.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Assessment{}, ErrAssessmentNotFound
	}
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("load assessment: %w", err)
	}
	return assessment, nil
}

func (s *AssessmentService) updateAssessment(ctx context.Context, assessment domain.Assessment) error {
	if err := s.assessments.UpdateSection(ctx, assessment); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAssessmentNotFound
		}
		return fmt.Errorf("update assessment: %w", err)
	}
	return nil
}
