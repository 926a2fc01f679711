// Package postgres provides PostgreSQL implementation of the comments repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/incidentflow/incidentflow/internal/comments"
	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the comments.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a comment.
func (r *Repository) Create(ctx context.Context, comment *domain.Comment) error {
	query := `
		INSERT INTO comments (incident_id, content, created_by_user_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		comment.IncidentID,
		comment.Content,
		comment.CreatedBy,
		comment.CreatedAt,
	).Scan(&comment.ID)

	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// GetByID retrieves a comment.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	query := `
		SELECT id, incident_id, content, created_by_user_id, created_at
		FROM comments
		WHERE id = $1
	`
	var comment domain.Comment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&comment.ID,
		&comment.IncidentID,
		&comment.Content,
		&comment.CreatedBy,
		&comment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, comments.ErrNotFound
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &comment, nil
}

// List returns comments oldest first, optionally for one incident.
func (r *Repository) List(ctx context.Context, filter comments.Filter) ([]*domain.Comment, error) {
	query := `
		SELECT id, incident_id, content, created_by_user_id, created_at
		FROM comments
	`
	var args []any
	if filter.IncidentID != nil {
		query += ` WHERE incident_id = $1`
		args = append(args, *filter.IncidentID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var items []*domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.IncidentID,
			&comment.Content,
			&comment.CreatedBy,
			&comment.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, &comment)
	}
	return items, rows.Err()
}

// Update replaces a comment's content.
func (r *Repository) Update(ctx context.Context, comment *domain.Comment) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE comments SET content = $2 WHERE id = $1`,
		comment.ID, comment.Content,
	)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return comments.ErrNotFound
	}
	return nil
}

// Delete removes a comment.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return comments.ErrNotFound
	}
	return nil
}
