package identity

import (
	"context"

	"github.com/incidentflow/incidentflow/internal/domain"
)

// Repository defines the interface for user storage.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByLogin(ctx context.Context, usernameOrEmail string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	ListUsersByRoles(ctx context.Context, roles []string) ([]*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id string) error
}
