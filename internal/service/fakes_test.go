package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"cohabisafe/internal/catalog"
	"cohabisafe/internal/domain"
)

type fakeAssessmentRepo struct {
	mu   sync.Mutex
	byID map[string]domain.Assessment
}

func newFakeAssessmentRepo() *fakeAssessmentRepo {
	return &fakeAssessmentRepo{byID: make(map[string]domain.Assessment)}
}

func (f *fakeAssessmentRepo) Create(_ context.Context, a domain.Assessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAssessmentRepo) GetByID(_ context.Context, id string) (domain.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return domain.Assessment{}, pgx.ErrNoRows
	}
	return a, nil
}

func (f *fakeAssessmentRepo) LatestByUser(_ context.Context, userID string) (domain.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest domain.Assessment
	found := false
	for _, a := range f.byID {
		if a.UserID == userID && (!found || a.CreatedAt.After(latest.CreatedAt)) {
			latest = a
			found = true
		}
	}
	if !found {
		return domain.Assessment{}, pgx.ErrNoRows
	}
	return latest, nil
}

func (f *fakeAssessmentRepo) UpdateSection(_ context.Context, a domain.Assessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAssessmentRepo) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byID[id]
	return ok
}

type fakeAnswerRepo struct {
	mu          sync.Mutex
	assessments *fakeAssessmentRepo
	answers     map[string]map[string]domain.AnswerValue
	mergeCalls  int
}

func newFakeAnswerRepo(assessments *fakeAssessmentRepo) *fakeAnswerRepo {
	return &fakeAnswerRepo{
		assessments: assessments,
		answers:     make(map[string]map[string]domain.AnswerValue),
	}
}

func (f *fakeAnswerRepo) Merge(_ context.Context, assessmentID string, partial map[string]domain.AnswerValue) error {
	if len(partial) == 0 {
		return nil
	}
	if !f.assessments.has(assessmentID) {
		return pgx.ErrNoRows
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mergeCalls++
	stored, ok := f.answers[assessmentID]
	if !ok {
		stored = make(map[string]domain.AnswerValue)
		f.answers[assessmentID] = stored
	}
	for id, value := range partial {
		stored[id] = value
	}
	return nil
}

func (f *fakeAnswerRepo) Get(_ context.Context, assessmentID, questionID string) (domain.AnswerValue, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.answers[assessmentID][questionID]
	return value, ok, nil
}

func (f *fakeAnswerRepo) Snapshot(_ context.Context, assessmentID string, questionIDs []string) (map[string]domain.AnswerValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make(map[string]domain.AnswerValue, len(questionIDs))
	for _, id := range questionIDs {
		if value, ok := f.answers[assessmentID][id]; ok {
			snapshot[id] = value
		}
	}
	return snapshot, nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles []domain.TraitProfile
}

func (f *fakeProfileRepo) Insert(_ context.Context, profile domain.TraitProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, profile)
	return nil
}

func (f *fakeProfileRepo) LatestByAssessment(_ context.Context, assessmentID string) (domain.TraitProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest domain.TraitProfile
	found := false
	for _, p := range f.profiles {
		if p.AssessmentID != assessmentID {
			continue
		}
		if !found || !p.ComputedAt.Before(latest.ComputedAt) {
			latest = p
			found = true
		}
	}
	if !found {
		return domain.TraitProfile{}, pgx.ErrNoRows
	}
	return latest, nil
}

type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[string]domain.User
	byEmail map[string]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (f *fakeUserRepo) Create(_ context.Context, u domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u.ID
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return f.byID[id], nil
}

func (f *fakeUserRepo) UpdateContact(_ context.Context, id, fullName, phone string, updatedAt time.Time) error {
	return f.update(id, func(u *domain.User) {
		u.FullName = fullName
		u.Phone = phone
		u.UpdatedAt = updatedAt
	})
}

func (f *fakeUserRepo) UpdateStatus(_ context.Context, id, status string, updatedAt time.Time) error {
	return f.update(id, func(u *domain.User) {
		u.Status = status
		u.UpdatedAt = updatedAt
	})
}

func (f *fakeUserRepo) SetBackgroundConsent(_ context.Context, id string, consentedAt time.Time) error {
	return f.update(id, func(u *domain.User) {
		u.BackgroundConsentAt = &consentedAt
		u.Status = domain.UserStatusConsented
		u.UpdatedAt = consentedAt
	})
}

func (f *fakeUserRepo) SetBackgroundInfo(_ context.Context, id, ssnHash string, dob *time.Time, updatedAt time.Time) error {
	return f.update(id, func(u *domain.User) {
		u.SSNHash = ssnHash
		u.DateOfBirth = dob
		u.Status = domain.UserStatusInfoReady
		u.UpdatedAt = updatedAt
	})
}

func (f *fakeUserRepo) update(id string, apply func(*domain.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	apply(&u)
	f.byID[id] = u
	return nil
}

// flowFixture wires an AssessmentService against in-memory fakes.
type flowFixture struct {
	cat         *catalog.Catalog
	svc         *AssessmentService
	assessments *fakeAssessmentRepo
	answers     *fakeAnswerRepo
	profiles    *fakeProfileRepo
	users       *fakeUserRepo
}

func newFlowFixture(t testingT, doc string) *flowFixture {
	cat, err := catalog.Load([]byte(doc))
	if err != nil {
		t.Fatalf("load test catalog: %v", err)
	}
	assessments := newFakeAssessmentRepo()
	answers := newFakeAnswerRepo(assessments)
	profiles := &fakeProfileRepo{}
	users := newFakeUserRepo()
	svc := NewAssessmentService(cat, assessments, answers, profiles, users, ThresholdLabeler{}, nil, zap.NewNop())
	return &flowFixture{
		cat:         cat,
		svc:         svc,
		assessments: assessments,
		answers:     answers,
		profiles:    profiles,
		users:       users,
	}
}

func (f *flowFixture) startAssessment(t testingT) domain.Assessment {
	user := domain.User{ID: "u1", Email: "u1@example.com", Status: domain.UserStatusSetup, CreatedAt: time.Now().UTC()}
	_ = f.users.Create(context.Background(), user)
	assessment, err := f.svc.Start(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("start assessment: %v", err)
	}
	return assessment
}

type testingT interface {
	Fatalf(format string, args ...any)
}
