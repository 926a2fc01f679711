package audit

import (
	"context"
	"fmt"

	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/incidentflow/incidentflow/internal/pkg/metrics"
	"github.com/jackc/pgx/v5"
)

// Service exposes the audit trail. Entries written by the incident
// lifecycle are append-only; the administrative edit path below exists
// for operators with audit access and carries no further business rule.
type Service struct {
	repo Repository
}

// NewService creates an audit service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AppendTx writes an entry within the caller's transaction. The
// incident lifecycle uses this so an audit write failure aborts the
// enclosing mutation.
func (s *Service) AppendTx(ctx context.Context, tx pgx.Tx, entry *domain.IncidentLog) error {
	if err := s.repo.CreateTx(ctx, tx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	metrics.AuditEntriesWritten.WithLabelValues(entry.Action).Inc()
	return nil
}

// Append writes a standalone entry (administrative path).
func (s *Service) Append(ctx context.Context, entry *domain.IncidentLog) error {
	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("create audit entry: %w", err)
	}
	return nil
}

// Get retrieves one entry.
func (s *Service) Get(ctx context.Context, id string) (*domain.IncidentLog, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves entries, optionally restricted to one incident,
// oldest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]*domain.IncidentLog, error) {
	return s.repo.List(ctx, filter)
}

// Update rewrites an entry (administrative path).
func (s *Service) Update(ctx context.Context, entry *domain.IncidentLog) error {
	return s.repo.Update(ctx, entry)
}

// Delete removes an entry (administrative path).
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
