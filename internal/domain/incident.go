package domain

import "time"

// IncidentStatus represents the workflow state of an incident.
type IncidentStatus string

// Incident statuses. Any status may transition to any other status;
// the workflow imposes no adjacency restrictions.
const (
	IncidentStatusOpen       IncidentStatus = "Open"
	IncidentStatusInProgress IncidentStatus = "InProgress"
	IncidentStatusResolved   IncidentStatus = "Resolved"
	IncidentStatusClosed     IncidentStatus = "Closed"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusOpen, IncidentStatusInProgress,
		IncidentStatusResolved, IncidentStatusClosed:
		return true
	}
	return false
}

// SeverityLevel represents the severity of an incident.
type SeverityLevel string

// Severity levels.
const (
	SeverityLow      SeverityLevel = "Low"
	SeverityMedium   SeverityLevel = "Medium"
	SeverityHigh     SeverityLevel = "High"
	SeverityCritical SeverityLevel = "Critical"
)

// IsValid checks if the severity level is valid.
func (s SeverityLevel) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Statuses returns all incident statuses in display order.
func Statuses() []IncidentStatus {
	return []IncidentStatus{
		IncidentStatusOpen,
		IncidentStatusInProgress,
		IncidentStatusResolved,
		IncidentStatusClosed,
	}
}

// Severities returns all severity levels in display order.
func Severities() []SeverityLevel {
	return []SeverityLevel{
		SeverityLow,
		SeverityMedium,
		SeverityHigh,
		SeverityCritical,
	}
}

// Incident represents an operational incident.
//
// Incidents are never physically removed: delete flips the soft-delete
// marker and restore flips it back. IsDeleted=true implies DeletedAt is
// set; IsDeleted=false implies DeletedAt is nil.
type Incident struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      IncidentStatus `json:"status"`
	Severity    SeverityLevel  `json:"severity"`
	CreatedBy   string         `json:"created_by"`
	AssignedTo  *string        `json:"assigned_to"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ResolvedAt  *time.Time     `json:"resolved_at"`
	IsDeleted   bool           `json:"is_deleted"`
	DeletedAt   *time.Time     `json:"deleted_at"`
	Version     int64          `json:"version"`
}

// IsOwnedBy reports whether the user created the incident or is its
// current assignee.
func (i *Incident) IsOwnedBy(userID string) bool {
	if userID == "" {
		return false
	}
	if i.CreatedBy == userID {
		return true
	}
	return i.AssignedTo != nil && *i.AssignedTo == userID
}

// IncidentLog is one immutable audit entry describing a field-level
// change to an incident. The core only ever appends entries; it never
// updates or deletes them.
type IncidentLog struct {
	ID          string    `json:"id"`
	IncidentID  string    `json:"incident_id"`
	Action      string    `json:"action"`
	Details     string    `json:"details"`
	PerformedBy string    `json:"performed_by_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}
