package authz

import (
	"testing"

	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanCreate(t *testing.T) {
	tests := []struct {
		name         string
		perms        Set
		withAssignee bool
		wantErr      bool
	}{
		{"create permission, no assignee", NewSet(IncidentsCreate), false, false},
		{"create and assign, with assignee", NewSet(IncidentsCreate, IncidentsAssign), true, false},
		{"create without assign, with assignee", NewSet(IncidentsCreate), true, true},
		{"no create permission", NewSet(IncidentsRead), false, true},
		{"empty set", NewSet(), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanCreate(tt.perms, tt.withAssignee)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrForbidden)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCanUpdate_StatusOnlyPath(t *testing.T) {
	userPerms := ForRole(domain.RoleUser)
	statusOnly := UpdateShape{Status: true}

	// status:limited plus ownership permits a status-only update.
	require.NoError(t, CanUpdate(userPerms, true, false, statusOnly))
	// Assignee ownership is enough on the status-only path.
	require.NoError(t, CanUpdate(userPerms, false, true, statusOnly))
	// No ownership: limited status permission is not enough.
	require.ErrorIs(t, CanUpdate(userPerms, false, false, statusOnly), ErrForbidden)

	// status:any needs no ownership.
	require.NoError(t, CanUpdate(ForRole(domain.RoleResponder), false, false, statusOnly))
}

func TestCanUpdate_GeneralEditGate(t *testing.T) {
	userPerms := ForRole(domain.RoleUser)
	withDescription := UpdateShape{Description: true, Status: true}

	// edit:own requires the creator; mere assignee does not satisfy it.
	require.NoError(t, CanUpdate(userPerms, true, false, withDescription))
	require.ErrorIs(t, CanUpdate(userPerms, false, true, withDescription), ErrForbidden)

	// edit:any bypasses ownership entirely.
	require.NoError(t, CanUpdate(ForRole(domain.RoleManager), false, false, withDescription))
}

func TestCanUpdate_AdditionalChecksAreIndependent(t *testing.T) {
	tests := []struct {
		name    string
		perms   Set
		shape   UpdateShape
		wantErr bool
	}{
		{
			name:    "assignment change without assign",
			perms:   NewSet(IncidentsEditAny, IncidentsSeverityAny),
			shape:   UpdateShape{Assignee: true},
			wantErr: true,
		},
		{
			name:    "severity change without severity:any",
			perms:   NewSet(IncidentsEditAny, IncidentsAssign),
			shape:   UpdateShape{Severity: true},
			wantErr: true,
		},
		{
			name:    "status in mixed update without status permission",
			perms:   NewSet(IncidentsEditAny),
			shape:   UpdateShape{Title: true, Status: true},
			wantErr: true,
		},
		{
			name:    "all permissions present",
			perms:   NewSet(IncidentsEditAny, IncidentsAssign, IncidentsSeverityAny, IncidentsStatusAny),
			shape:   UpdateShape{Title: true, Status: true, Severity: true, Assignee: true},
			wantErr: false,
		},
		{
			name:    "title-only with edit:any",
			perms:   NewSet(IncidentsEditAny),
			shape:   UpdateShape{Title: true},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanUpdate(tt.perms, false, false, tt.shape)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrForbidden)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCanDeleteRestore(t *testing.T) {
	admin := ForRole(domain.RoleAdmin)
	responder := ForRole(domain.RoleResponder)

	assert.NoError(t, CanDelete(admin))
	assert.NoError(t, CanRestore(admin))
	// The operator tier cannot delete or restore.
	assert.ErrorIs(t, CanDelete(responder), ErrForbidden)
	assert.ErrorIs(t, CanRestore(responder), ErrForbidden)
}

func TestCanModerateComment(t *testing.T) {
	assert.NoError(t, CanModerateComment(NewSet(), true))
	assert.NoError(t, CanModerateComment(NewSet(IncidentsEditAny), false))
	assert.ErrorIs(t, CanModerateComment(NewSet(IncidentsEditOwn), false), ErrForbidden)
}
