package identity

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/incidentflow/incidentflow/internal/authz"
	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/incidentflow/incidentflow/internal/pkg/httputil"
)

// CookieSettings contains settings for authentication cookies.
type CookieSettings struct {
	Name   string
	Domain string
	Secure bool
}

// Handler handles HTTP requests for the identity module.
type Handler struct {
	service        *Service
	validator      *validator.Validate
	cookieSettings CookieSettings
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service, cookieSettings CookieSettings) *Handler {
	return &Handler{
		service:        service,
		validator:      validator.New(),
		cookieSettings: cookieSettings,
	}
}

// RegisterPublicRoutes registers routes reachable without an
// authenticated session. Self-registration is public on purpose; the
// role a caller may request is still decided by their permissions.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/logout", h.Logout)
	r.Post("/users", h.CreateUser)
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/me", h.Me)
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Get("/assignable", h.ListAssignableUsers)
		r.Get("/directory", h.ListDirectory)
		r.Get("/{id}", h.GetUser)
		r.Put("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the login response.
type LoginResponse struct {
	User        *domain.User `json:"user"`
	Permissions []string     `json:"permissions"`
	Token       string       `json:"token"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.setAuthCookies(w, result.Token, result.ExpiresAt)

	httputil.Success(w, http.StatusOK, LoginResponse{
		User:        result.User,
		Permissions: result.Perms.Values(),
		Token:       result.Token,
		ExpiresAt:   result.ExpiresAt,
	})
}

// Logout handles POST /auth/logout. Tokens are stateless, so logout
// just clears the cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// MeResponse represents the authenticated identity.
type MeResponse struct {
	User        *domain.User `json:"user"`
	Permissions []string     `json:"permissions"`
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())
	if userID == "" {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, MeResponse{
		User:        user,
		Permissions: httputil.GetPermissions(r.Context()).Values(),
	})
}

// CreateUserRequest represents the request body for creating a user.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"max=255"`
	Password string `json:"password"`
	Role     string `json:"role" validate:"omitempty,oneof=Admin Manager Responder User"`
}

// CreateUser handles POST /users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Role:     req.Role,
	}, httputil.GetPermissions(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, user)
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanManageUsers(perms); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, users)
}

// ListAssignableUsers handles GET /users/assignable.
func (h *Handler) ListAssignableUsers(w http.ResponseWriter, r *http.Request) {
	perms := httputil.GetPermissions(r.Context())
	if !perms.Has(authz.IncidentsAssign) {
		httputil.Error(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	users, err := h.service.ListAssignableUsers(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, users)
}

// DirectoryEntry is the reduced user representation exposed to every
// reader, for rendering names next to incidents.
type DirectoryEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// ListDirectory handles GET /users/directory.
func (h *Handler) ListDirectory(w http.ResponseWriter, r *http.Request) {
	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanRead(perms); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	entries := make([]DirectoryEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, DirectoryEntry{
			ID:       u.ID,
			Username: u.Username,
			FullName: u.FullName,
		})
	}

	httputil.Success(w, http.StatusOK, entries)
}

// GetUser handles GET /users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanManageUsers(perms); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// UpdateUserRequest represents the request body for updating a user.
type UpdateUserRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	FullName string `json:"full_name" validate:"max=255"`
	Role     string `json:"role" validate:"omitempty,oneof=Admin Manager Responder User"`
	Password string `json:"password"`
}

// UpdateUser handles PUT /users/{id}.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanManageUsers(perms); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, UpdateUserInput{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanManageUsers(perms); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// setAuthCookies sets the http-only token cookie plus the CSRF cookie
// readable by the frontend for the double-submit check.
func (h *Handler) setAuthCookies(w http.ResponseWriter, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieSettings.Name,
		Value:    token,
		Path:     "/",
		Domain:   h.cookieSettings.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSettings.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieSettings.Name + "_csrf",
		Value:    generateCSRFToken(),
		Path:     "/",
		Domain:   h.cookieSettings.Domain,
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   h.cookieSettings.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{h.cookieSettings.Name, h.cookieSettings.Name + "_csrf"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   h.cookieSettings.Domain,
			MaxAge:   -1,
			HttpOnly: name == h.cookieSettings.Name,
			Secure:   h.cookieSettings.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func generateCSRFToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(b)
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrUserNotFound, Status: http.StatusNotFound},
		{Error: ErrUsernameExists, Status: http.StatusConflict},
		{Error: ErrEmailExists, Status: http.StatusConflict},
		{Error: ErrInvalidCredentials, Status: http.StatusUnauthorized},
		{Error: ErrInvalidToken, Status: http.StatusUnauthorized},
		{Error: ErrPasswordRequired, Status: http.StatusBadRequest},
		{Error: ErrRateLimited, Status: http.StatusTooManyRequests},
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return "", false
	}
	return id, true
}
