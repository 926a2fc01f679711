package incidents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/incidentflow/incidentflow/internal/audit"
	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/incidentflow/incidentflow/internal/pkg/metrics"
	"github.com/jackc/pgx/v5"
)

// AuditWriter appends audit entries inside the caller's transaction so
// incident changes and their log records commit atomically.
type AuditWriter interface {
	AppendTx(ctx context.Context, tx pgx.Tx, entry *domain.IncidentLog) error
}

// Service implements incident business logic.
type Service struct {
	repo     Repository
	logs     AuditWriter
	recorder *audit.Recorder
	now      func() time.Time
}

// NewService creates a new incident service.
func NewService(repo Repository, logs AuditWriter) *Service {
	return &Service{
		repo:     repo,
		logs:     logs,
		recorder: audit.NewRecorder(),
		now:      time.Now,
	}
}

// CreateIncidentInput holds data for creating an incident.
type CreateIncidentInput struct {
	Title       string
	Description string
	Severity    domain.SeverityLevel
	AssignedTo  *string
}

// UpdateIncidentInput holds data for updating an incident. Nil pointers
// mean the field is untouched; blank title or description is ignored
// rather than clearing the stored value.
type UpdateIncidentInput struct {
	Title           string
	Description     string
	Status          *domain.IncidentStatus
	Severity        *domain.SeverityLevel
	AssignedTo      *string
	ResolvedAt      *time.Time
	ExpectedVersion *int64
}

// CreateIncident creates a new incident in Open status and records the
// creation audit entry in the same transaction.
func (s *Service) CreateIncident(ctx context.Context, input CreateIncidentInput, createdBy string) (*domain.Incident, error) {
	if !input.Severity.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeverity, input.Severity)
	}

	now := s.now().UTC()
	incident := &domain.Incident{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      domain.IncidentStatusOpen,
		Severity:    input.Severity,
		CreatedBy:   createdBy,
		AssignedTo:  input.AssignedTo,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := s.repo.CreateTx(ctx, tx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	if err := s.logs.AppendTx(ctx, tx, s.recorder.Created(incident.ID, createdBy)); err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	metrics.IncidentsCreated.WithLabelValues(string(incident.Severity)).Inc()

	return incident, nil
}

// GetIncident returns a single incident. Soft-deleted incidents are
// reported as not found.
func (s *Service) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateIncident applies the supplied field changes and records one
// audit entry per tracked change. A no-op update still bumps UpdatedAt
// but produces no audit entries.
func (s *Service) UpdateIncident(ctx context.Context, id string, input UpdateIncidentInput, performedBy string) (*domain.Incident, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, *input.Status)
	}
	if input.Severity != nil && !input.Severity.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeverity, *input.Severity)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	incident, err := s.repo.GetForUpdateTx(ctx, tx, id, false)
	if err != nil {
		return nil, err
	}

	if input.ExpectedVersion != nil && *input.ExpectedVersion != incident.Version {
		return nil, ErrVersionConflict
	}

	before := audit.Capture(incident)

	if strings.TrimSpace(input.Title) != "" {
		incident.Title = strings.TrimSpace(input.Title)
	}
	if strings.TrimSpace(input.Description) != "" {
		incident.Description = input.Description
	}
	if input.Status != nil {
		incident.Status = *input.Status
	}
	if input.Severity != nil {
		incident.Severity = *input.Severity
	}
	if input.AssignedTo != nil {
		incident.AssignedTo = input.AssignedTo
	}
	if input.ResolvedAt != nil {
		incident.ResolvedAt = input.ResolvedAt
	}
	if incident.Status == domain.IncidentStatusResolved && incident.ResolvedAt == nil {
		resolvedAt := s.now().UTC()
		incident.ResolvedAt = &resolvedAt
	}
	incident.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateTx(ctx, tx, incident); err != nil {
		return nil, err
	}

	entries := s.recorder.Diff(performedBy, before, incident)
	for _, entry := range entries {
		if err := s.logs.AppendTx(ctx, tx, entry); err != nil {
			return nil, fmt.Errorf("append audit entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	if before.Status != incident.Status {
		metrics.IncidentStatusTransitions.WithLabelValues(string(before.Status), string(incident.Status)).Inc()
	}

	return incident, nil
}

// DeleteIncident soft-deletes an incident. Deleting a missing or
// already-deleted incident is a silent no-op so the operation stays
// idempotent; the audit entry is recorded only on the first delete.
func (s *Service) DeleteIncident(ctx context.Context, id string, performedBy string) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	incident, err := s.repo.GetForUpdateTx(ctx, tx, id, true)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if incident.IsDeleted {
		return nil
	}

	now := s.now().UTC()
	incident.IsDeleted = true
	incident.DeletedAt = &now
	incident.UpdatedAt = now

	if err := s.repo.UpdateTx(ctx, tx, incident); err != nil {
		return err
	}

	if err := s.logs.AppendTx(ctx, tx, s.recorder.Deleted(incident.ID, performedBy)); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	return tx.Commit(ctx)
}

// RestoreIncident clears the soft-delete flag. Restoring a missing or
// not-deleted incident returns ErrNotFound.
func (s *Service) RestoreIncident(ctx context.Context, id string, performedBy string) (*domain.Incident, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	incident, err := s.repo.GetForUpdateTx(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if !incident.IsDeleted {
		return nil, ErrNotFound
	}

	incident.IsDeleted = false
	incident.DeletedAt = nil
	incident.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateTx(ctx, tx, incident); err != nil {
		return nil, err
	}

	if err := s.logs.AppendTx(ctx, tx, s.recorder.Restored(incident.ID, performedBy)); err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return incident, nil
}
