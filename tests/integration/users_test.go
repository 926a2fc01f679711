//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/incidentflow/incidentflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func TestUsers_AdminCreatesWithRole(t *testing.T) {
	admin := newAdminClient(t)
	username := testutil.RandomUsername("oncall")

	resp, err := admin.POST("/api/v1/users", map[string]string{
		"username":  username,
		"email":     testutil.RandomEmail(),
		"full_name": "On-call Engineer",
		"password":  "password123",
		"role":      "Responder",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data userPayload `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, "Responder", result.Data.Role)
	assert.Equal(t, username, result.Data.Username)
}

func TestUsers_EmailStoredLowercase(t *testing.T) {
	admin := newAdminClient(t)
	username := testutil.RandomUsername("case")

	resp, err := admin.POST("/api/v1/users", map[string]string{
		"username": username,
		"email":    "MiXeD-" + testutil.RandomEmail(),
		"password": "password123",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data userPayload `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, strings.ToLower(result.Data.Email), result.Data.Email)
}

func TestUsers_GetUpdateDelete(t *testing.T) {
	admin := newAdminClient(t)
	client := newTestClient(t)
	id := registerTestUser(t, client, testutil.RandomUsername("managed"), testutil.RandomEmail(), "password123")

	resp, err := admin.GET("/api/v1/users/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched struct {
		Data userPayload `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &fetched)
	assert.Equal(t, "User", fetched.Data.Role)

	// Promote and rename.
	resp, err = admin.PUT("/api/v1/users/"+id, map[string]string{
		"full_name": "Promoted Person",
		"role":      "Manager",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated struct {
		Data userPayload `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &updated)
	assert.Equal(t, "Manager", updated.Data.Role)
	assert.Equal(t, "Promoted Person", updated.Data.FullName)
	assert.Equal(t, fetched.Data.Email, updated.Data.Email) // untouched fields survive

	resp, err = admin.DELETE("/api/v1/users/" + id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = admin.GET("/api/v1/users/" + id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUsers_Update_NotFound(t *testing.T) {
	admin := newAdminClient(t)

	resp, err := admin.PUT("/api/v1/users/"+uuid.NewString(), map[string]string{
		"full_name": "Ghost",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUsers_AssignableExcludesBaseRole(t *testing.T) {
	admin := newAdminClient(t)

	resp, err := admin.GET("/api/v1/users/assignable")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []userPayload `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.Data)
	for _, u := range result.Data {
		assert.NotEqual(t, "User", u.Role)
	}
}

func TestUsers_DirectoryOmitsSensitiveFields(t *testing.T) {
	user := newUserClient(t)

	resp, err := user.GET("/api/v1/users/directory")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []map[string]interface{} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.Data)
	for _, entry := range result.Data {
		assert.NotContains(t, entry, "email")
		assert.NotContains(t, entry, "role")
		assert.Contains(t, entry, "username")
	}
}
