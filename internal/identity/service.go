// Package identity provides user accounts, authentication and user
// administration.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/incidentflow/incidentflow/internal/authz"
	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/incidentflow/incidentflow/internal/pkg/metrics"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Authenticator issues signed tokens for authenticated users.
type Authenticator interface {
	GenerateToken(ctx context.Context, user *domain.User, perms []string) (token string, expiresAt time.Time, err error)
}

// Service implements identity business logic.
type Service struct {
	repo    Repository
	auth    Authenticator
	limiter *loginLimiter
	now     func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository, auth Authenticator) *Service {
	return &Service{
		repo:    repo,
		auth:    auth,
		limiter: newLoginLimiter(rate.Every(2*time.Second), 5),
		now:     time.Now,
	}
}

// RegisterInput holds data for creating a user account.
type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
	Role     string
}

// Register creates a user account. The requested role is honored only
// when the caller holds user administration rights; everyone else gets
// the base role regardless of what the request asked for.
func (s *Service) Register(ctx context.Context, input RegisterInput, callerPerms authz.Set) (*domain.User, error) {
	if strings.TrimSpace(input.Password) == "" {
		return nil, ErrPasswordRequired
	}

	role := domain.RoleUser
	if callerPerms.Has(authz.UsersManage) && input.Role != "" {
		role = input.Role
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		FullName:     strings.TrimSpace(input.FullName),
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// LoginResult carries the authenticated user, their permissions and the
// issued token.
type LoginResult struct {
	User      *domain.User
	Perms     authz.Set
	Token     string
	ExpiresAt time.Time
}

// Login verifies credentials and issues a token. Attempts are rate
// limited per login name; a throttled attempt fails before the
// password check so it costs no bcrypt work.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (*LoginResult, error) {
	key := strings.ToLower(strings.TrimSpace(usernameOrEmail))
	if !s.limiter.allow(key) {
		metrics.LoginAttempts.WithLabelValues("throttled").Inc()
		return nil, ErrRateLimited
	}

	user, err := s.repo.GetUserByLogin(ctx, key)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	perms := authz.ForRole(user.Role)
	token, expiresAt, err := s.auth.GenerateToken(ctx, user, perms.Values())
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return &LoginResult{
		User:      user,
		Perms:     perms,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// GetUserByID retrieves one user.
func (s *Service) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// ListUsers returns all user accounts.
func (s *Service) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.repo.ListUsers(ctx)
}

// ListAssignableUsers returns the users an incident can be assigned to:
// members of the operator roles plus administrators.
func (s *Service) ListAssignableUsers(ctx context.Context) ([]*domain.User, error) {
	return s.repo.ListUsersByRoles(ctx, []string{domain.RoleAdmin, domain.RoleManager, domain.RoleResponder})
}

// UpdateUserInput holds mutable account fields. Empty values leave the
// stored field unchanged.
type UpdateUserInput struct {
	Email    string
	FullName string
	Role     string
	Password string
}

// UpdateUser modifies an account.
func (s *Service) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Email) != "" {
		user.Email = strings.ToLower(strings.TrimSpace(input.Email))
	}
	if strings.TrimSpace(input.FullName) != "" {
		user.FullName = strings.TrimSpace(input.FullName)
	}
	if input.Role != "" {
		user.Role = input.Role
	}
	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.repo.DeleteUser(ctx, id)
}

// loginLimiter throttles login attempts per login name.
type loginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newLoginLimiter(limit rate.Limit, burst int) *loginLimiter {
	return &loginLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (l *loginLimiter) allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}
