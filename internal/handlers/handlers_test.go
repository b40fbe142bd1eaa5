package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pandoras-vault/apiserver/internal/errs"
	"github.com/pandoras-vault/apiserver/internal/services"
	"github.com/pandoras-vault/apiserver/types"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret  = "test-secret"
	testServiceKey = "test-service-key"
)

// --- in-memory fakes matching the store's semantics ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]types.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]types.User)}
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return types.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, errs.ErrNotFound
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username != nil && *u.Username == username {
			return u, nil
		}
	}
	return types.User{}, errs.ErrNotFound
}

func (m *memUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return user, nil
}

func (m *memUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return types.User{}, errs.ErrNotFound
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return errs.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type memProgressRepo struct {
	mu      sync.Mutex
	records map[string]types.Progress
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{records: make(map[string]types.Progress)}
}

func (m *memProgressRepo) getOrDefault(userID string) types.Progress {
	p, ok := m.records[userID]
	if !ok {
		p = types.Progress{UserID: userID, CurrentLevel: 1}
	}
	return p
}

func (m *memProgressRepo) Get(_ context.Context, userID string) (types.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[userID]
	if !ok {
		return types.Progress{}, errs.ErrNotFound
	}
	return p, nil
}

func (m *memProgressRepo) Upsert(_ context.Context, userID string, patch types.ProgressPatch) (types.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.getOrDefault(userID)
	if patch.Topic != nil {
		p.Topic = patch.Topic
	}
	if patch.CurrentLevel != nil {
		p.CurrentLevel = *patch.CurrentLevel
	}
	if patch.DiagnosticAttempts != nil {
		p.DiagnosticAttempts = *patch.DiagnosticAttempts
	}
	if patch.DiagnosticPassed != nil {
		p.DiagnosticPassed = *patch.DiagnosticPassed
	}
	if patch.HintStage != nil {
		p.HintStage = *patch.HintStage
	}
	p.UpdatedAt = time.Now()
	m.records[userID] = p
	return p, nil
}

func (m *memProgressRepo) IncrementAttempts(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.getOrDefault(userID)
	if p.DiagnosticAttempts >= types.MaxAttempts {
		return 0, errs.ErrAttemptsExhausted
	}
	p.DiagnosticAttempts++
	p.UpdatedAt = time.Now()
	m.records[userID] = p
	return p.DiagnosticAttempts, nil
}

func (m *memProgressRepo) SetPassed(_ context.Context, userID string, passed bool) (types.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.getOrDefault(userID)
	p.DiagnosticPassed = passed
	p.UpdatedAt = time.Now()
	m.records[userID] = p
	return p, nil
}

func (m *memProgressRepo) AdvanceLevel(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.getOrDefault(userID)
	if p.CurrentLevel >= types.MaxLevel {
		return 0, errs.ErrMaxLevel
	}
	p.CurrentLevel++
	p.UpdatedAt = time.Now()
	m.records[userID] = p
	return p.CurrentLevel, nil
}

func (m *memProgressRepo) AdvanceHintStage(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.getOrDefault(userID)
	if p.HintStage >= types.MaxHintStage {
		return 0, errs.ErrMaxHint
	}
	p.HintStage++
	p.UpdatedAt = time.Now()
	m.records[userID] = p
	return p.HintStage, nil
}

func (m *memProgressRepo) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, userID)
	return nil
}

// --- router and request helpers ---

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	userService := services.NewUserService(newMemUserRepo())
	progressService := services.NewProgressService(newMemProgressRepo(), nil)
	authMiddleware := RequireAuth(testJWTSecret)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, userService, nil, testJWTSecret, time.Hour)
	})
	router.Route("/session", func(r chi.Router) {
		SessionRouter(r, progressService, authMiddleware)
	})
	router.Route("/operator", func(r chi.Router) {
		OperatorRouter(r, progressService, testServiceKey)
	})
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doServiceJSON(t *testing.T, router http.Handler, method, path, serviceKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if serviceKey != "" {
		req.Header.Set("X-Service-Key", serviceKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func signupUser(t *testing.T, router http.Handler, email string) (string, types.User) {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/auth/signup", "", SignupRequest{
		Email:           email,
		Password:        "hunter2hunter2",
		ConfirmPassword: "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody[TokenResponse](t, rec)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken, resp.User
}
