//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/incidentflow/incidentflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_Register_Login_Flow(t *testing.T) {
	client := newTestClient(t)
	username := testutil.RandomUsername("flow")
	email := testutil.RandomEmail()
	password := "password123"

	// Anonymous registration may request a role but never gets it.
	resp, err := client.POST("/api/v1/users", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
		"role":     "Admin",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var registerResult struct {
		Data struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &registerResult)
	assert.Equal(t, username, registerResult.Data.Username)
	assert.Equal(t, "User", registerResult.Data.Role)
	assert.NotEmpty(t, registerResult.Data.ID)

	resp, err = client.POST("/api/v1/auth/login", map[string]string{
		"login":    email,
		"password": password,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var hasAuthCookie, hasCSRFCookie bool
	for _, c := range resp.Cookies() {
		switch c.Name {
		case "incidentflow_token":
			hasAuthCookie = true
			assert.True(t, c.HttpOnly)
		case "incidentflow_token_csrf":
			hasCSRFCookie = true
			assert.False(t, c.HttpOnly) // frontend reads this one
		}
	}
	assert.True(t, hasAuthCookie, "auth cookie should be set")
	assert.True(t, hasCSRFCookie, "csrf cookie should be set")

	var loginResult struct {
		Data struct {
			User struct {
				Username string `json:"username"`
			} `json:"user"`
			Permissions []string `json:"permissions"`
			Token       string   `json:"token"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &loginResult)
	assert.Equal(t, username, loginResult.Data.User.Username)
	assert.NotEmpty(t, loginResult.Data.Token)
	assert.Contains(t, loginResult.Data.Permissions, "incidents:read")
	assert.NotContains(t, loginResult.Data.Permissions, "users:manage")
}

func TestAuth_Login_ByUsername(t *testing.T) {
	client := newTestClient(t)
	username := testutil.RandomUsername("byname")
	registerTestUser(t, client, username, testutil.RandomEmail(), "password123")

	resp, err := client.POST("/api/v1/auth/login", map[string]string{
		"login":    username,
		"password": "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_Login_InvalidCredentials(t *testing.T) {
	client := newTestClient(t)
	resp, err := client.POST("/api/v1/auth/login", map[string]string{
		"login":    testutil.RandomEmail(),
		"password": "wrongpassword",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_Login_RateLimited(t *testing.T) {
	client := newTestClient(t)
	login := testutil.RandomEmail()

	// The limiter allows a burst of 5 attempts per login name; the
	// sixth rapid attempt is rejected before credentials are checked.
	var last int
	for i := 0; i < 6; i++ {
		resp, err := client.POST("/api/v1/auth/login", map[string]string{
			"login":    login,
			"password": "wrongpassword",
		})
		require.NoError(t, err)
		last = resp.StatusCode
		resp.Body.Close()
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestAuth_Register_DuplicateUsername(t *testing.T) {
	client := newTestClient(t)
	username := testutil.RandomUsername("dup")
	registerTestUser(t, client, username, testutil.RandomEmail(), "password123")

	resp, err := client.POST("/api/v1/users", map[string]string{
		"username": username,
		"email":    testutil.RandomEmail(),
		"password": "password456",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_Register_PasswordRequired(t *testing.T) {
	client := newTestClient(t)
	resp, err := client.POST("/api/v1/users", map[string]string{
		"username": testutil.RandomUsername("nopass"),
		"email":    testutil.RandomEmail(),
		"password": "   ",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_Me_RequiresAuth(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.GET("/api/v1/auth/me")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_Me_ReturnsCurrentUser(t *testing.T) {
	client := newAdminClient(t)

	resp, err := client.GET("/api/v1/auth/me")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			User struct {
				Email string `json:"email"`
				Role  string `json:"role"`
			} `json:"user"`
			Permissions []string `json:"permissions"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, "admin@example.com", result.Data.User.Email)
	assert.Equal(t, "Admin", result.Data.User.Role)
	assert.Contains(t, result.Data.Permissions, "users:manage")
	assert.Len(t, result.Data.Permissions, 15)
}

func TestAuth_CookieMutation_RequiresCSRF(t *testing.T) {
	client := newTestClient(t)
	client.LoginAsResponder(t)

	// Cookie-authenticated writes without the CSRF header are rejected.
	client.CSRFToken = ""
	resp, err := client.POST("/api/v1/incidents", map[string]string{
		"title":       "CSRF probe",
		"description": "Should not be created",
		"severity":    "Low",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Reads are unaffected.
	resp, err = client.GET("/api/v1/incidents")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_Logout_ClearsSession(t *testing.T) {
	client := newTestClient(t)
	username := testutil.RandomUsername("logout")
	email := testutil.RandomEmail()
	registerTestUser(t, client, username, email, "password123")
	client.LoginAs(t, email, "password123")

	resp, err := client.GET("/api/v1/auth/me")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.POST("/api/v1/auth/logout", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.GET("/api/v1/auth/me")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_InvalidToken_Rejected(t *testing.T) {
	client := newTestClient(t)
	client.Token = "not-a-jwt"

	resp, err := client.GET("/api/v1/incidents")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
