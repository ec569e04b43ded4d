package api

import (
	"encoding/json/v2"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup_Success(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, userID := ts.signupUser(t, "mina@example.com", "FilmBuff")

	assert.NotEmpty(t, token)
	assert.NotEmpty(t, userID)

	// The token works for authenticated endpoints.
	resp := ts.api.Get("/api/v1/me", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[UserResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "mina@example.com", envelope.Data.Email)
	assert.Equal(t, "FilmBuff", envelope.Data.DisplayName)
}

func TestSignup_NicknameConflict(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	ts.signupUser(t, "first@example.com", "FilmBuff")

	// A case variant of a taken nickname is still a conflict.
	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email":           "second@example.com",
		"password":        "TestPassword123!",
		"confirmPassword": "TestPassword123!",
		"nickname":        "filmbuff",
		"device_info": map[string]any{
			"device_type": "mobile",
			"platform":    "iOS",
		},
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	var envelope testEnvelope[struct{}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "ALREADY_EXISTS", envelope.Code)
}

func TestSignup_PasswordMismatch(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email":           "mina@example.com",
		"password":        "TestPassword123!",
		"confirmPassword": "SomethingElse!",
		"nickname":        "FilmBuff",
		"device_info": map[string]any{
			"device_type": "mobile",
			"platform":    "iOS",
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLogin_Success(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	ts.signupUser(t, "mina@example.com", "FilmBuff")

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "mina@example.com",
		"password": "TestPassword123!",
		"device_info": map[string]any{
			"device_type": "mobile",
			"platform":    "iOS",
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, "Login failed: %s", resp.Body.String())

	var envelope testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.NotEmpty(t, envelope.Data.RefreshToken)
	assert.Equal(t, "Bearer", envelope.Data.TokenType)
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	ts.signupUser(t, "mina@example.com", "FilmBuff")

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "mina@example.com",
		"password": "WrongPassword!",
		"device_info": map[string]any{
			"device_type": "mobile",
			"platform":    "iOS",
		},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRefresh_RotatesToken(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email":           "mina@example.com",
		"password":        "TestPassword123!",
		"confirmPassword": "TestPassword123!",
		"nickname":        "FilmBuff",
		"device_info": map[string]any{
			"device_type": "mobile",
			"platform":    "iOS",
		},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var signup testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &signup))
	oldRefresh := signup.Data.RefreshToken

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": oldRefresh,
	})
	require.Equal(t, http.StatusOK, resp.Code, "Refresh failed: %s", resp.Body.String())

	var refreshed testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &refreshed))
	assert.NotEqual(t, oldRefresh, refreshed.Data.RefreshToken)

	// The old refresh token is dead after rotation.
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": oldRefresh,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLogout_RevokesSession(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email":           "mina@example.com",
		"password":        "TestPassword123!",
		"confirmPassword": "TestPassword123!",
		"nickname":        "FilmBuff",
		"device_info": map[string]any{
			"device_type": "mobile",
			"platform":    "iOS",
		},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var signup testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &signup))

	resp = ts.api.Post("/api/v1/auth/logout", map[string]any{
		"session_id": signup.Data.SessionID,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	// The refresh token from the revoked session no longer works.
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": signup.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLogoutAll_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/auth/logout-all", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestUpdateDisplayName_CasingOnly(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.signupUser(t, "mina@example.com", "FilmBuff")

	// Recasing the same nickname is allowed.
	resp := ts.api.Patch("/api/v1/me/display-name", bearer(token), map[string]any{
		"display_name": "FILMBUFF",
	})
	require.Equal(t, http.StatusOK, resp.Code, "Update failed: %s", resp.Body.String())

	var envelope testEnvelope[UserResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "FILMBUFF", envelope.Data.DisplayName)

	// A different nickname is rejected without a fresh reservation.
	resp = ts.api.Patch("/api/v1/me/display-name", bearer(token), map[string]any{
		"display_name": "OtherName",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
