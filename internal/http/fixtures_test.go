package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cohabisafe/internal/catalog"
	"cohabisafe/internal/domain"
	"cohabisafe/internal/service"
)

const testCatalogDoc = `
version: test
sections:
  - id: personality
    threshold: 0.8
    scored: true
    questions:
      - {id: q1, text: a, kind: scalar_slider, trait: openness, likert_max: 5}
      - {id: q2, text: b, kind: scalar_slider, trait: conscientiousness, likert_max: 5}
  - id: building
    threshold: 0.5
    questions:
      - {id: b1, text: c, kind: free_text}
`

type mockAssessmentRepo struct {
	byID map[string]domain.Assessment
}

func newMockAssessmentRepo() *mockAssessmentRepo {
	return &mockAssessmentRepo{byID: make(map[string]domain.Assessment)}
}

func (m *mockAssessmentRepo) Create(_ context.Context, a domain.Assessment) error {
	m.byID[a.ID] = a
	return nil
}

func (m *mockAssessmentRepo) GetByID(_ context.Context, id string) (domain.Assessment, error) {
	a, ok := m.byID[id]
	if !ok {
		return domain.Assessment{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockAssessmentRepo) LatestByUser(_ context.Context, userID string) (domain.Assessment, error) {
	var latest domain.Assessment
	found := false
	for _, a := range m.byID {
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

func (m *mockAssessmentRepo) UpdateSection(_ context.Context, a domain.Assessment) error {
	if _, ok := m.byID[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.byID[a.ID] = a
	return nil
}

type mockAnswerRepo struct {
	assessments *mockAssessmentRepo
	answers     map[string]map[string]domain.AnswerValue
}

func newMockAnswerRepo(assessments *mockAssessmentRepo) *mockAnswerRepo {
	return &mockAnswerRepo{
		assessments: assessments,
		answers:     make(map[string]map[string]domain.AnswerValue),
	}
}

func (m *mockAnswerRepo) Merge(_ context.Context, assessmentID string, partial map[string]domain.AnswerValue) error {
	if len(partial) == 0 {
		return nil
	}
	if _, ok := m.assessments.byID[assessmentID]; !ok {
		return pgx.ErrNoRows
	}
	stored, ok := m.answers[assessmentID]
	if !ok {
		stored = make(map[string]domain.AnswerValue)
		m.answers[assessmentID] = stored
	}
	for id, value := range partial {
		stored[id] = value
	}
	return nil
}

func (m *mockAnswerRepo) Get(_ context.Context, assessmentID, questionID string) (domain.AnswerValue, bool, error) {
	value, ok := m.answers[assessmentID][questionID]
	return value, ok, nil
}

func (m *mockAnswerRepo) Snapshot(_ context.Context, assessmentID string, questionIDs []string) (map[string]domain.AnswerValue, error) {
	snapshot := make(map[string]domain.AnswerValue, len(questionIDs))
	for _, id := range questionIDs {
		if value, ok := m.answers[assessmentID][id]; ok {
			snapshot[id] = value
		}
	}
	return snapshot, nil
}

type mockProfileRepo struct {
	profiles []domain.TraitProfile
}

func (m *mockProfileRepo) Insert(_ context.Context, profile domain.TraitProfile) error {
	m.profiles = append(m.profiles, profile)
	return nil
}

func (m *mockProfileRepo) LatestByAssessment(_ context.Context, assessmentID string) (domain.TraitProfile, error) {
	var latest domain.TraitProfile
	found := false
	for _, p := range m.profiles {
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

type mockUserRepo struct {
	byID    map[string]domain.User
	byEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, u domain.User) error {
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.byID[id], nil
}

func (m *mockUserRepo) UpdateContact(_ context.Context, id, fullName, phone string, updatedAt time.Time) error {
	return m.update(id, func(u *domain.User) {
		u.FullName = fullName
		u.Phone = phone
		u.UpdatedAt = updatedAt
	})
}

func (m *mockUserRepo) UpdateStatus(_ context.Context, id, status string, updatedAt time.Time) error {
	return m.update(id, func(u *domain.User) {
		u.Status = status
		u.UpdatedAt = updatedAt
	})
}

func (m *mockUserRepo) SetBackgroundConsent(_ context.Context, id string, consentedAt time.Time) error {
	return m.update(id, func(u *domain.User) {
		u.BackgroundConsentAt = &consentedAt
		u.Status = domain.UserStatusConsented
		u.UpdatedAt = consentedAt
	})
}

func (m *mockUserRepo) SetBackgroundInfo(_ context.Context, id, ssnHash string, dob *time.Time, updatedAt time.Time) error {
	return m.update(id, func(u *domain.User) {
		u.SSNHash = ssnHash
		u.DateOfBirth = dob
		u.Status = domain.UserStatusInfoReady
		u.UpdatedAt = updatedAt
	})
}

func (m *mockUserRepo) update(id string, apply func(*domain.User)) error {
	u, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	apply(&u)
	m.byID[id] = u
	return nil
}

// routerFixture wires the full router over in-memory repositories.
type routerFixture struct {
	router      *gin.Engine
	assessments *mockAssessmentRepo
	users       *mockUserRepo
	profiles    *mockProfileRepo
	flow        *service.AssessmentService
}

func setupRouter(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := catalog.Load([]byte(testCatalogDoc))
	if err != nil {
		t.Fatalf("load test catalog: %v", err)
	}
	assessments := newMockAssessmentRepo()
	answers := newMockAnswerRepo(assessments)
	profiles := &mockProfileRepo{}
	users := newMockUserRepo()

	logger := zap.NewNop()
	flow := service.NewAssessmentService(cat, assessments, answers, profiles, users, nil, nil, logger)
	onboarding := service.NewOnboardingService(logger, users, flow, bcrypt.MinCost)

	router := NewRouter(logger,
		NewUserHandler(logger, onboarding),
		NewAssessmentHandler(logger, flow),
		NewCatalogHandler(cat),
	)
	return &routerFixture{
		router:      router,
		assessments: assessments,
		users:       users,
		profiles:    profiles,
		flow:        flow,
	}
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

// createAccount runs the account-setup endpoint and returns the new
// user and assessment ids.
func createAccount(t *testing.T, f *routerFixture) (userID, assessmentID string) {
	t.Helper()
	rec := performRequest(f.router, http.MethodPost, "/users", map[string]string{
		"email":     "dana@example.com",
		"full_name": "Dana Smith",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	user, _ := body["user"].(map[string]any)
	assessment, _ := body["assessment"].(map[string]any)
	userID, _ = user["id"].(string)
	assessmentID, _ = assessment["id"].(string)
	if userID == "" || assessmentID == "" {
		t.Fatalf("missing ids in response: %s", rec.Body.String())
	}
	return userID, assessmentID
}
