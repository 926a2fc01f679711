//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/incidentflow/incidentflow/internal/testutil"
	"github.com/stretchr/testify/require"
)

// incidentPayload is the decoded incident body used across tests.
type incidentPayload struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Severity    string     `json:"severity"`
	CreatedBy   string     `json:"created_by"`
	AssignedTo  *string    `json:"assigned_to"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	IsDeleted   bool       `json:"is_deleted"`
	Version     int64      `json:"version"`
}

type incidentEnvelope struct {
	Data incidentPayload `json:"data"`
}

type auditEntryPayload struct {
	ID          string    `json:"id"`
	IncidentID  string    `json:"incident_id"`
	Action      string    `json:"action"`
	Details     string    `json:"details"`
	PerformedBy string    `json:"performed_by_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type commentPayload struct {
	ID         string    `json:"id"`
	IncidentID string    `json:"incident_id"`
	Content    string    `json:"content"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type incidentOption func(map[string]interface{})

func withSeverity(severity string) incidentOption {
	return func(m map[string]interface{}) {
		m["severity"] = severity
	}
}

func withAssignee(userID string) incidentOption {
	return func(m map[string]interface{}) {
		m["assigned_to_user_id"] = userID
	}
}

// createTestIncident creates an incident and registers cleanup.
func createTestIncident(t *testing.T, client *testutil.Client, title string, opts ...incidentOption) incidentPayload {
	t.Helper()

	payload := map[string]interface{}{
		"title":       title,
		"description": "Integration test incident",
		"severity":    "Medium",
	}
	for _, opt := range opts {
		opt(payload)
	}

	resp, err := client.POST("/api/v1/incidents", payload)
	require.NoError(t, err)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create incident: status=%d body=%s", resp.StatusCode, testutil.ReadBody(t, resp))
	}

	var result incidentEnvelope
	testutil.DecodeJSON(t, resp, &result)

	t.Cleanup(func() {
		cleanup := newAdminClient(t)
		resp, err := cleanup.DELETE("/api/v1/incidents/" + result.Data.ID)
		if err != nil {
			t.Logf("cleanup warning (incident %s): %v", result.Data.ID, err)
			return
		}
		resp.Body.Close()
	})

	return result.Data
}

// getIncident fetches an incident by ID, asserting a 200.
func getIncident(t *testing.T, client *testutil.Client, id string) incidentPayload {
	t.Helper()

	resp, err := client.GET("/api/v1/incidents/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result incidentEnvelope
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// updateIncident applies a partial update, asserting a 200.
func updateIncident(t *testing.T, client *testutil.Client, id string, fields map[string]interface{}) incidentPayload {
	t.Helper()

	resp, err := client.PUT("/api/v1/incidents/"+id, fields)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result incidentEnvelope
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// auditEntriesFor returns the audit log entries for one incident,
// oldest first. Requires an admin client.
func auditEntriesFor(t *testing.T, client *testutil.Client, incidentID string) []auditEntryPayload {
	t.Helper()

	resp, err := client.GET("/api/v1/incident-logs?incidentId=" + incidentID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []auditEntryPayload `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// createTestComment creates a comment on an incident.
func createTestComment(t *testing.T, client *testutil.Client, incidentID, content string) commentPayload {
	t.Helper()

	resp, err := client.POST("/api/v1/comments", map[string]string{
		"incident_id": incidentID,
		"content":     content,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data commentPayload `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// registerTestUser self-registers a user through the public endpoint
// and returns its ID.
func registerTestUser(t *testing.T, client *testutil.Client, username, email, password string) string {
	t.Helper()

	resp, err := client.POST("/api/v1/users", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}
