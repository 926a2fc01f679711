// Package authz implements permission-token evaluation for incident
// operations. The catalog maps roles to fixed token sets; the guard is
// a set of pure decision functions over those sets plus per-record
// ownership, so every decision is unit-testable without a request
// context.
package authz

import "github.com/incidentflow/incidentflow/internal/domain"

// Permission is an opaque capability token granted via role membership.
type Permission string

// The full permission token set.
const (
	IncidentsRead          Permission = "incidents:read"
	IncidentsCreate        Permission = "incidents:create"
	IncidentsEditOwn       Permission = "incidents:edit:own"
	IncidentsEditAny       Permission = "incidents:edit:any"
	IncidentsStatusLimited Permission = "incidents:status:limited"
	IncidentsStatusAny     Permission = "incidents:status:any"
	IncidentsSeverityAny   Permission = "incidents:severity:any"
	IncidentsAssign        Permission = "incidents:assign"
	IncidentsDelete        Permission = "incidents:delete"
	IncidentsRestore       Permission = "incidents:restore"
	IncidentsAuditRead     Permission = "incidents:audit:read"
	UsersManage            Permission = "users:manage"
	RolesManage            Permission = "roles:manage"
	DashboardBasic         Permission = "dashboard:basic"
	DashboardFull          Permission = "dashboard:full"
)

// Set is a collection of permission tokens.
type Set map[Permission]struct{}

// NewSet builds a set from the given permissions.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether the set contains the permission.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Values returns the permissions as strings, for token claims and the
// /auth/me response.
func (s Set) Values() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	return out
}

// ForRole returns the permission set derived from a role. Unrecognized
// roles fall back to the minimal read-only tier so an unknown role can
// never grant write access.
func ForRole(role string) Set {
	switch role {
	case domain.RoleAdmin:
		return NewSet(
			IncidentsRead,
			IncidentsCreate,
			IncidentsEditOwn,
			IncidentsEditAny,
			IncidentsStatusLimited,
			IncidentsStatusAny,
			IncidentsSeverityAny,
			IncidentsAssign,
			IncidentsDelete,
			IncidentsRestore,
			IncidentsAuditRead,
			UsersManage,
			RolesManage,
			DashboardBasic,
			DashboardFull,
		)
	case domain.RoleManager, domain.RoleResponder:
		return NewSet(
			IncidentsRead,
			IncidentsCreate,
			IncidentsEditAny,
			IncidentsStatusAny,
			IncidentsSeverityAny,
			IncidentsAssign,
			DashboardBasic,
			DashboardFull,
		)
	case domain.RoleUser:
		return NewSet(
			IncidentsRead,
			IncidentsCreate,
			IncidentsEditOwn,
			IncidentsStatusLimited,
			DashboardBasic,
		)
	default:
		return NewSet(
			IncidentsRead,
			DashboardBasic,
		)
	}
}

// FromValues rebuilds a set from string claims, dropping anything that
// is not a recognized token.
func FromValues(values []string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		p := Permission(v)
		if _, ok := catalog[p]; ok {
			s[p] = struct{}{}
		}
	}
	return s
}

var catalog = NewSet(
	IncidentsRead,
	IncidentsCreate,
	IncidentsEditOwn,
	IncidentsEditAny,
	IncidentsStatusLimited,
	IncidentsStatusAny,
	IncidentsSeverityAny,
	IncidentsAssign,
	IncidentsDelete,
	IncidentsRestore,
	IncidentsAuditRead,
	UsersManage,
	RolesManage,
	DashboardBasic,
	DashboardFull,
)
