// Package postgres provides PostgreSQL implementation of the incidents repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/incidentflow/incidentflow/internal/incidents"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the incidents.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const incidentColumns = `
	id, title, description, status, severity,
	created_by_user_id, assigned_to_user_id,
	created_at, updated_at, resolved_at,
	is_deleted, deleted_at, version
`

// BeginTx starts a transaction on the pool.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// CreateTx inserts an incident within the transaction.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (
			title, description, status, severity,
			created_by_user_id, assigned_to_user_id,
			created_at, updated_at, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := tx.QueryRow(ctx, query,
		incident.Title,
		incident.Description,
		incident.Status,
		incident.Severity,
		incident.CreatedBy,
		incident.AssignedTo,
		incident.CreatedAt,
		incident.UpdatedAt,
		incident.Version,
	).Scan(&incident.ID)

	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// GetByID retrieves a non-deleted incident.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1 AND is_deleted = FALSE`

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return incident, nil
}

// GetForUpdateTx retrieves an incident with a row lock so concurrent
// mutations serialize on the row.
func (r *Repository) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id string, includeDeleted bool) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`
	if !includeDeleted {
		query += ` AND is_deleted = FALSE`
	}
	query += ` FOR UPDATE`

	incident, err := scanIncident(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrNotFound
		}
		return nil, fmt.Errorf("get incident for update: %w", err)
	}
	return incident, nil
}

// UpdateTx writes all mutable fields and bumps the version. A zero row
// count means another transaction changed the version underneath us.
func (r *Repository) UpdateTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	query := `
		UPDATE incidents
		SET title = $2,
			description = $3,
			status = $4,
			severity = $5,
			assigned_to_user_id = $6,
			updated_at = $7,
			resolved_at = $8,
			is_deleted = $9,
			deleted_at = $10,
			version = version + 1
		WHERE id = $1 AND version = $11
	`
	tag, err := tx.Exec(ctx, query,
		incident.ID,
		incident.Title,
		incident.Description,
		incident.Status,
		incident.Severity,
		incident.AssignedTo,
		incident.UpdatedAt,
		incident.ResolvedAt,
		incident.IsDeleted,
		incident.DeletedAt,
		incident.Version,
	)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return incidents.ErrVersionConflict
	}
	incident.Version++
	return nil
}

// List returns one page of non-deleted incidents matching the filter,
// newest first, along with the unpaginated match count.
func (r *Repository) List(ctx context.Context, q incidents.ListQuery) ([]*domain.Incident, int, error) {
	where, args := filterClause(q)

	var total int
	countQuery := `SELECT COUNT(*) FROM incidents ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}

	offset := (q.Page - 1) * q.PageSize
	listQuery := `SELECT ` + incidentColumns + ` FROM incidents ` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, q.PageSize, offset)

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var items []*domain.Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan incident: %w", err)
		}
		items = append(items, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate incidents: %w", err)
	}

	return items, total, nil
}

// SummaryCounts computes the scalar dashboard counters in one query.
func (r *Repository) SummaryCounts(ctx context.Context, weekStart time.Time, currentUserID *string) (incidents.SummaryCounts, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'Open'),
			COUNT(*) FILTER (WHERE severity = 'Critical'),
			COUNT(*) FILTER (WHERE resolved_at >= $1),
			COUNT(*) FILTER (WHERE assigned_to_user_id IS NULL),
			COUNT(*) FILTER (WHERE $2::uuid IS NOT NULL AND assigned_to_user_id = $2)
		FROM incidents
		WHERE is_deleted = FALSE
	`
	var counts incidents.SummaryCounts
	err := r.db.QueryRow(ctx, query, weekStart, currentUserID).Scan(
		&counts.Total,
		&counts.Open,
		&counts.Critical,
		&counts.ResolvedThisWeek,
		&counts.Unassigned,
		&counts.AssignedToMe,
	)
	if err != nil {
		return incidents.SummaryCounts{}, fmt.Errorf("summary counts: %w", err)
	}
	return counts, nil
}

// StatusCounts returns non-deleted incident counts grouped by status.
func (r *Repository) StatusCounts(ctx context.Context) (map[domain.IncidentStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM incidents
		WHERE is_deleted = FALSE
		GROUP BY status
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.IncidentStatus]int)
	for rows.Next() {
		var status domain.IncidentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// SeverityCounts returns non-deleted incident counts grouped by severity.
func (r *Repository) SeverityCounts(ctx context.Context) (map[domain.SeverityLevel]int, error) {
	query := `
		SELECT severity, COUNT(*)
		FROM incidents
		WHERE is_deleted = FALSE
		GROUP BY severity
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("severity counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.SeverityLevel]int)
	for rows.Next() {
		var severity domain.SeverityLevel
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		counts[severity] = count
	}
	return counts, rows.Err()
}

// CreatedPerDay returns creation counts keyed by UTC day (YYYY-MM-DD)
// since from.
func (r *Repository) CreatedPerDay(ctx context.Context, from time.Time) (map[string]int, error) {
	query := `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM incidents
		WHERE is_deleted = FALSE AND created_at >= $1
		GROUP BY day
	`
	rows, err := r.db.Query(ctx, query, from)
	if err != nil {
		return nil, fmt.Errorf("created per day: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan day count: %w", err)
		}
		counts[day] = count
	}
	return counts, rows.Err()
}

func filterClause(q incidents.ListQuery) (string, []any) {
	where := `WHERE is_deleted = FALSE`
	var args []any

	switch q.Filter {
	case incidents.FilterOpen:
		where += ` AND status = 'Open'`
	case incidents.FilterCritical:
		where += ` AND severity = 'Critical'`
	case incidents.FilterResolvedThisWeek:
		// resolved_at survives a reopen, so a reopened incident still
		// counts toward the week it was resolved in.
		args = append(args, q.WeekStart)
		where += fmt.Sprintf(` AND resolved_at >= $%d`, len(args))
	case incidents.FilterUnassigned:
		where += ` AND assigned_to_user_id IS NULL`
	case incidents.FilterAssignedToMe:
		args = append(args, q.CurrentUserID)
		where += fmt.Sprintf(` AND assigned_to_user_id = $%d`, len(args))
	}

	return where, args
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var incident domain.Incident
	err := row.Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Status,
		&incident.Severity,
		&incident.CreatedBy,
		&incident.AssignedTo,
		&incident.CreatedAt,
		&incident.UpdatedAt,
		&incident.ResolvedAt,
		&incident.IsDeleted,
		&incident.DeletedAt,
		&incident.Version,
	)
	if err != nil {
		return nil, err
	}
	return &incident, nil
}
