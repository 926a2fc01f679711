package authz

import (
	"errors"
	"fmt"
)

// ErrForbidden is returned when the requester's permission set does not
// allow the requested operation.
var ErrForbidden = errors.New("forbidden")

// UpdateShape describes which fields an update request populates. The
// guard decides on the shape of the change, never on the values; values
// and ownership come from the persisted record, not from the client.
type UpdateShape struct {
	Title       bool
	Description bool
	Status      bool
	Severity    bool
	Assignee    bool
}

// statusOnly reports whether status is the only populated field. Such
// updates take the relaxed permission path so owners can move their own
// incident through the workflow without full edit rights.
func (u UpdateShape) statusOnly() bool {
	return u.Status && !u.Title && !u.Description && !u.Severity && !u.Assignee
}

// CanCreate decides incident creation. Specifying an assignee at
// creation additionally requires the assign permission.
func CanCreate(perms Set, withAssignee bool) error {
	if !perms.Has(IncidentsCreate) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, IncidentsCreate)
	}
	if withAssignee && !perms.Has(IncidentsAssign) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, IncidentsAssign)
	}
	return nil
}

// CanRead decides single reads, lists and the dashboard summary.
func CanRead(perms Set) error {
	if !perms.Has(IncidentsRead) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, IncidentsRead)
	}
	return nil
}

// CanUpdate decides an incident update given the requester's permission
// set, their relationship to the persisted record, and the shape of the
// change. Each check is independent; the first failing check wins.
//
// Note the ownership asymmetry: the status-only path accepts creator or
// assignee, while the edit:own gate accepts the creator only.
func CanUpdate(perms Set, isCreator, isAssignee bool, shape UpdateShape) error {
	if !shape.statusOnly() && !perms.Has(IncidentsEditAny) {
		if !perms.Has(IncidentsEditOwn) || !isCreator {
			return fmt.Errorf("%w: requires %s or ownership via %s", ErrForbidden, IncidentsEditAny, IncidentsEditOwn)
		}
	}

	if shape.Assignee && !perms.Has(IncidentsAssign) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, IncidentsAssign)
	}

	if shape.Severity && !perms.Has(IncidentsSeverityAny) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, IncidentsSeverityAny)
	}

	if shape.Status && !perms.Has(IncidentsStatusAny) {
		if !perms.Has(IncidentsStatusLimited) || !(isCreator || isAssignee) {
			return fmt.Errorf("%w: requires %s or ownership via %s", ErrForbidden, IncidentsStatusAny, IncidentsStatusLimited)
		}
	}

	return nil
}

// CanDelete decides soft deletion.
func CanDelete(perms Set) error {
	if !perms.Has(IncidentsDelete) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, IncidentsDelete)
	}
	return nil
}

// CanRestore decides restoring a soft-deleted incident.
func CanRestore(perms Set) error {
	if !perms.Has(IncidentsRestore) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, IncidentsRestore)
	}
	return nil
}

// CanComment decides adding a comment to an incident.
func CanComment(perms Set) error {
	if perms.Has(IncidentsCreate) || perms.Has(IncidentsEditAny) {
		return nil
	}
	return fmt.Errorf("%w: requires %s", ErrForbidden, IncidentsCreate)
}

// CanModerateComment decides writes to a comment the requester did not
// author. Authors always pass; anyone else needs edit:any.
func CanModerateComment(perms Set, isAuthor bool) error {
	if isAuthor || perms.Has(IncidentsEditAny) {
		return nil
	}
	return fmt.Errorf("%w: requires %s", ErrForbidden, IncidentsEditAny)
}

// CanReadAudit decides access to the audit log surface.
func CanReadAudit(perms Set) error {
	if !perms.Has(IncidentsAuditRead) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, IncidentsAuditRead)
	}
	return nil
}

// CanManageUsers decides user administration.
func CanManageUsers(perms Set) error {
	if !perms.Has(UsersManage) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, UsersManage)
	}
	return nil
}
