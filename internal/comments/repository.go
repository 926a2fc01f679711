package comments

import (
	"context"

	"github.com/incidentflow/incidentflow/internal/domain"
)

// Filter narrows comment listing.
type Filter struct {
	IncidentID *string
}

// Repository defines the interface for comment storage.
type Repository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	List(ctx context.Context, filter Filter) ([]*domain.Comment, error)
	Update(ctx context.Context, comment *domain.Comment) error
	Delete(ctx context.Context, id string) error
}
