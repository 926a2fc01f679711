package audit

import (
	"context"
	"errors"

	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when an audit entry does not exist.
var ErrNotFound = errors.New("audit entry not found")

// Repository defines the interface for audit log storage.
type Repository interface {
	Create(ctx context.Context, entry *domain.IncidentLog) error
	CreateTx(ctx context.Context, tx pgx.Tx, entry *domain.IncidentLog) error
	GetByID(ctx context.Context, id string) (*domain.IncidentLog, error)
	List(ctx context.Context, filter Filter) ([]*domain.IncidentLog, error)
	Update(ctx context.Context, entry *domain.IncidentLog) error
	Delete(ctx context.Context, id string) error
}

// Filter restricts listed entries.
type Filter struct {
	IncidentID *string
}
