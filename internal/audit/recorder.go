// Package audit generates and serves the immutable incident audit
// trail. The recorder turns a before/after pair into log entries; the
// service and handler expose the admin read surface.
package audit

import (
	"fmt"

	"github.com/incidentflow/incidentflow/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Audit action labels.
const (
	ActionCreate  = "Create"
	ActionDelete  = "Delete (soft)"
	ActionRestore = "Restore"
)

// unassignedLabel is how an empty assignment renders in entry details.
const unassignedLabel = "Unassigned"

// Snapshot captures the audited fields of an incident before any
// mutation is applied. Diffing always runs against this snapshot and
// the final post-state, never against intermediate values.
type Snapshot struct {
	Status     domain.IncidentStatus
	Severity   domain.SeverityLevel
	AssignedTo *string
}

// Capture takes a snapshot of the audited fields.
func Capture(i *domain.Incident) Snapshot {
	return Snapshot{
		Status:     i.Status,
		Severity:   i.Severity,
		AssignedTo: i.AssignedTo,
	}
}

// Recorder produces audit entries for incident mutations.
type Recorder struct {
	titles cases.Caser
}

// NewRecorder creates a recorder.
func NewRecorder() *Recorder {
	return &Recorder{titles: cases.Title(language.English)}
}

// Diff emits one entry per audited field whose value actually changed,
// in fixed order: status, then severity, then assignment. Equal values
// produce nothing; a no-op update yields an empty slice.
func (r *Recorder) Diff(performedBy string, before Snapshot, after *domain.Incident) []*domain.IncidentLog {
	var entries []*domain.IncidentLog

	if before.Status != after.Status {
		entries = append(entries, r.entry(after.ID, performedBy, "status",
			fmt.Sprintf("Status changed from %s to %s.", before.Status, after.Status)))
	}

	if before.Severity != after.Severity {
		entries = append(entries, r.entry(after.ID, performedBy, "severity",
			fmt.Sprintf("Severity changed from %s to %s.", before.Severity, after.Severity)))
	}

	if !assigneeEqual(before.AssignedTo, after.AssignedTo) {
		entries = append(entries, r.entry(after.ID, performedBy, "assignment",
			fmt.Sprintf("Assignment changed from %s to %s.",
				assigneeLabel(before.AssignedTo), assigneeLabel(after.AssignedTo))))
	}

	return entries
}

// Created emits the single fixed entry for incident creation.
func (r *Recorder) Created(incidentID, performedBy string) *domain.IncidentLog {
	return &domain.IncidentLog{
		IncidentID:  incidentID,
		Action:      ActionCreate,
		Details:     "Incident created.",
		PerformedBy: performedBy,
	}
}

// Deleted emits the single fixed entry for a soft delete.
func (r *Recorder) Deleted(incidentID, performedBy string) *domain.IncidentLog {
	return &domain.IncidentLog{
		IncidentID:  incidentID,
		Action:      ActionDelete,
		Details:     "Incident soft deleted.",
		PerformedBy: performedBy,
	}
}

// Restored emits the single fixed entry for a restore.
func (r *Recorder) Restored(incidentID, performedBy string) *domain.IncidentLog {
	return &domain.IncidentLog{
		IncidentID:  incidentID,
		Action:      ActionRestore,
		Details:     "Incident restored from soft delete.",
		PerformedBy: performedBy,
	}
}

func (r *Recorder) entry(incidentID, performedBy, field, details string) *domain.IncidentLog {
	return &domain.IncidentLog{
		IncidentID:  incidentID,
		Action:      r.titles.String(field) + " change",
		Details:     details,
		PerformedBy: performedBy,
	}
}

func assigneeEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func assigneeLabel(id *string) string {
	if id == nil {
		return unassignedLabel
	}
	return *id
}
