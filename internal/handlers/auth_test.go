package handlers

import (
	"net/http"
	"testing"

	"github.com/pandoras-vault/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/signup", "", SignupRequest{
		Email:           "new@example.com",
		Password:        "hunter2hunter2",
		ConfirmPassword: "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody[TokenResponse](t, rec)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, "new@example.com", resp.User.Email)
	assert.False(t, resp.User.IsOnboarded)

	// duplicate email is rejected
	rec = doJSON(t, router, http.MethodPost, "/auth/signup", "", SignupRequest{
		Email:           "new@example.com",
		Password:        "hunter2hunter2",
		ConfirmPassword: "hunter2hunter2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupValidation(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		req  SignupRequest
	}{
		{"missing email", SignupRequest{Password: "hunter2hunter2", ConfirmPassword: "hunter2hunter2"}},
		{"bad email", SignupRequest{Email: "not-an-email", Password: "hunter2hunter2", ConfirmPassword: "hunter2hunter2"}},
		{"password mismatch", SignupRequest{Email: "a@example.com", Password: "hunter2hunter2", ConfirmPassword: "different"}},
		{"short password", SignupRequest{Email: "a@example.com", Password: "short", ConfirmPassword: "short"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/auth/signup", "", tc.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLogin(t *testing.T) {
	router := newTestRouter(t)
	signupUser(t, router, "login@example.com")

	rec := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "login@example.com",
		Password: "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[TokenResponse](t, rec)
	assert.NotEmpty(t, resp.AccessToken)

	// wrong password and unknown email both come back as the same 401
	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "login@example.com",
		Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "nobody@example.com",
		Password: "hunter2hunter2",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	router := newTestRouter(t)
	token, user := signupUser(t, router, "me@example.com")

	rec := doJSON(t, router, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[types.User](t, rec)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "me@example.com", got.Email)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOnboard(t *testing.T) {
	router := newTestRouter(t)
	token, _ := signupUser(t, router, "onboard@example.com")

	rec := doJSON(t, router, http.MethodPost, "/auth/onboard", token, OnboardRequest{Username: "pandora"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[types.User](t, rec)
	require.NotNil(t, got.Username)
	assert.Equal(t, "pandora", *got.Username)
	assert.True(t, got.IsOnboarded)

	// onboarding is one-shot
	rec = doJSON(t, router, http.MethodPost, "/auth/onboard", token, OnboardRequest{Username: "again"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// a second user cannot claim the same username
	otherToken, _ := signupUser(t, router, "other@example.com")
	rec = doJSON(t, router, http.MethodPost, "/auth/onboard", otherToken, OnboardRequest{Username: "pandora"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProfile(t *testing.T) {
	router := newTestRouter(t)
	token, _ := signupUser(t, router, "profile@example.com")

	rec := doJSON(t, router, http.MethodPatch, "/auth/profile", token, UpdateProfileRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	username := "epimetheus"
	rec = doJSON(t, router, http.MethodPatch, "/auth/profile", token, UpdateProfileRequest{Username: &username})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[types.User](t, rec)
	require.NotNil(t, got.Username)
	assert.Equal(t, "epimetheus", *got.Username)

	picURL := "https://cdn.example.com/avatars/abc"
	rec = doJSON(t, router, http.MethodPatch, "/auth/profile", token, UpdateProfileRequest{ProfilePicURL: &picURL})
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeBody[types.User](t, rec)
	require.NotNil(t, got.ProfilePicURL)
	assert.Equal(t, picURL, *got.ProfilePicURL)
	// username survives a picture-only patch
	require.NotNil(t, got.Username)
	assert.Equal(t, "epimetheus", *got.Username)
}

func TestDeleteAccount(t *testing.T) {
	router := newTestRouter(t)
	token, _ := signupUser(t, router, "gone@example.com")

	rec := doJSON(t, router, http.MethodDelete, "/auth/account", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// the token still parses but the account is gone
	rec = doJSON(t, router, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, verifyPassword("correct horse battery staple", hash))
	assert.False(t, verifyPassword("incorrect horse", hash))

	// the sha256 prehash keeps long passwords out of bcrypt's 72-byte limit
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	longHash, err := hashPassword(string(long))
	require.NoError(t, err)
	assert.True(t, verifyPassword(string(long), longHash))
}
