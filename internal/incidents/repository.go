package incidents

import (
	"context"
	"time"

	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Repository defines the interface for incident storage. Mutations run
// through Tx variants so the record load, field update and audit append
// commit or roll back as one unit.
type Repository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	CreateTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error
	GetByID(ctx context.Context, id string) (*domain.Incident, error)
	GetForUpdateTx(ctx context.Context, tx pgx.Tx, id string, includeDeleted bool) (*domain.Incident, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error

	List(ctx context.Context, q ListQuery) ([]*domain.Incident, int, error)

	SummaryCounts(ctx context.Context, weekStart time.Time, currentUserID *string) (SummaryCounts, error)
	StatusCounts(ctx context.Context) (map[domain.IncidentStatus]int, error)
	SeverityCounts(ctx context.Context) (map[domain.SeverityLevel]int, error)
	CreatedPerDay(ctx context.Context, from time.Time) (map[string]int, error)
}

// ListQuery is the resolved, clamped query the repository executes.
// Soft-deleted incidents are always excluded.
type ListQuery struct {
	Filter        ListFilter
	Page          int
	PageSize      int
	CurrentUserID *string
	WeekStart     time.Time
}

// SummaryCounts holds the scalar dashboard counters.
type SummaryCounts struct {
	Total            int
	Open             int
	Critical         int
	ResolvedThisWeek int
	Unassigned       int
	AssignedToMe     int
}
