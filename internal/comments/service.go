package comments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/incidentflow/incidentflow/internal/domain"
)

// IncidentReader checks that the commented incident exists and is not
// soft-deleted.
type IncidentReader interface {
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
}

// Service implements comment business logic.
type Service struct {
	repo      Repository
	incidents IncidentReader
	now       func() time.Time
}

// NewService creates a new comment service.
func NewService(repo Repository, incidents IncidentReader) *Service {
	return &Service{
		repo:      repo,
		incidents: incidents,
		now:       time.Now,
	}
}

// CreateComment attaches a comment to an existing incident.
func (s *Service) CreateComment(ctx context.Context, incidentID, content, createdBy string) (*domain.Comment, error) {
	if _, err := s.incidents.GetIncident(ctx, incidentID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		IncidentID: incidentID,
		Content:    strings.TrimSpace(content),
		CreatedBy:  createdBy,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// GetComment retrieves one comment.
func (s *Service) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListComments returns comments, optionally narrowed to one incident,
// oldest first.
func (s *Service) ListComments(ctx context.Context, filter Filter) ([]*domain.Comment, error) {
	comments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	if comments == nil {
		comments = []*domain.Comment{}
	}
	return comments, nil
}

// UpdateComment replaces a comment's content.
func (s *Service) UpdateComment(ctx context.Context, id, content string) (*domain.Comment, error) {
	comment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comment.Content = strings.TrimSpace(content)
	if err := s.repo.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return comment, nil
}

// DeleteComment removes a comment.
func (s *Service) DeleteComment(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
