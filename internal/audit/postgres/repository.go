// Package postgres provides the PostgreSQL implementation of the audit
// log repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/incidentflow/incidentflow/internal/audit"
	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements audit.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL audit repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const insertQuery = `
	INSERT INTO incident_logs (incident_id, action, details, performed_by_user_id)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at
`

// Create inserts a new audit entry.
func (r *Repository) Create(ctx context.Context, entry *domain.IncidentLog) error {
	err := r.db.QueryRow(ctx, insertQuery,
		entry.IncidentID,
		entry.Action,
		entry.Details,
		entry.PerformedBy,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("create incident log: %w", err)
	}
	return nil
}

// CreateTx inserts a new audit entry within an existing transaction.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, entry *domain.IncidentLog) error {
	err := tx.QueryRow(ctx, insertQuery,
		entry.IncidentID,
		entry.Action,
		entry.Details,
		entry.PerformedBy,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("create incident log: %w", err)
	}
	return nil
}

// GetByID retrieves one audit entry.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.IncidentLog, error) {
	query := `
		SELECT id, incident_id, action, details, performed_by_user_id, created_at
		FROM incident_logs
		WHERE id = $1
	`
	var entry domain.IncidentLog
	err := r.db.QueryRow(ctx, query, id).Scan(
		&entry.ID,
		&entry.IncidentID,
		&entry.Action,
		&entry.Details,
		&entry.PerformedBy,
		&entry.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, audit.ErrNotFound
		}
		return nil, fmt.Errorf("get incident log: %w", err)
	}
	return &entry, nil
}

// List retrieves audit entries in chronological order.
func (r *Repository) List(ctx context.Context, filter audit.Filter) ([]*domain.IncidentLog, error) {
	query := `
		SELECT id, incident_id, action, details, performed_by_user_id, created_at
		FROM incident_logs
	`
	args := []any{}
	if filter.IncidentID != nil {
		query += " WHERE incident_id = $1"
		args = append(args, *filter.IncidentID)
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incident logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.IncidentLog, 0)
	for rows.Next() {
		var entry domain.IncidentLog
		err := rows.Scan(
			&entry.ID,
			&entry.IncidentID,
			&entry.Action,
			&entry.Details,
			&entry.PerformedBy,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan incident log: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incident logs: %w", err)
	}
	return entries, nil
}

// Update rewrites an audit entry.
func (r *Repository) Update(ctx context.Context, entry *domain.IncidentLog) error {
	query := `
		UPDATE incident_logs
		SET incident_id = $2, action = $3, details = $4, performed_by_user_id = $5
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.IncidentID,
		entry.Action,
		entry.Details,
		entry.PerformedBy,
	)
	if err != nil {
		return fmt.Errorf("update incident log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return audit.ErrNotFound
	}
	return nil
}

// Delete removes an audit entry.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM incident_logs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete incident log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return audit.ErrNotFound
	}
	return nil
}
