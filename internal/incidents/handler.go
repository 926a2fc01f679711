package incidents

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/incidentflow/incidentflow/internal/authz"
	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/incidentflow/incidentflow/internal/pkg/httputil"
)

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the incidents module.
// Authentication is applied by the caller; per-route permission checks
// happen here against the requester's permission set.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.ListIncidents)
		r.Get("/dashboard-summary", h.GetDashboardSummary)
		r.Post("/", h.CreateIncident)
		r.Get("/{id}", h.GetIncident)
		r.Put("/{id}", h.UpdateIncident)
		r.Delete("/{id}", h.DeleteIncident)
		r.Post("/{id}/restore", h.RestoreIncident)
	})
}

// CreateIncidentRequest represents the request body for creating an incident.
type CreateIncidentRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=255"`
	Description string  `json:"description" validate:"required"`
	Severity    string  `json:"severity" validate:"required,oneof=Low Medium High Critical"`
	AssignedTo  *string `json:"assigned_to_user_id" validate:"omitempty,uuid"`
}

// UpdateIncidentRequest represents the request body for updating an
// incident. Absent fields leave the stored values untouched.
type UpdateIncidentRequest struct {
	Title       string     `json:"title" validate:"omitempty,max=255"`
	Description string     `json:"description"`
	Status      *string    `json:"status" validate:"omitempty,oneof=Open InProgress Resolved Closed"`
	Severity    *string    `json:"severity" validate:"omitempty,oneof=Low Medium High Critical"`
	AssignedTo  *string    `json:"assigned_to_user_id" validate:"omitempty,uuid"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	Version     *int64     `json:"version" validate:"omitempty,min=1"`
}

// ListIncidents handles GET /incidents.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanRead(perms); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	params := ListParams{
		Page:          queryInt(r, "page", 1),
		PageSize:      queryInt(r, "pageSize", DefaultPageSize),
		Filter:        r.URL.Query().Get("filter"),
		CurrentUserID: currentUserID(r),
	}

	page, err := h.service.ListIncidents(r.Context(), params)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusOK, page)
}

// GetDashboardSummary handles GET /incidents/dashboard-summary.
func (h *Handler) GetDashboardSummary(w http.ResponseWriter, r *http.Request) {
	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanRead(perms); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	summary, err := h.service.GetDashboardSummary(r.Context(), currentUserID(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusOK, summary)
}

// GetIncident handles GET /incidents/{id}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanRead(perms); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	incident, err := h.service.GetIncident(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// CreateIncident handles POST /incidents.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanCreate(perms, req.AssignedTo != nil); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	incident, err := h.service.CreateIncident(r.Context(), CreateIncidentInput{
		Title:       req.Title,
		Description: req.Description,
		Severity:    domain.SeverityLevel(req.Severity),
		AssignedTo:  req.AssignedTo,
	}, httputil.GetUserID(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// UpdateIncident handles PUT /incidents/{id}.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	// Authorization depends on the caller's relation to the stored
	// incident, so load it before the guard check.
	current, err := h.service.GetIncident(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	userID := httputil.GetUserID(r.Context())
	shape := authz.UpdateShape{
		Title:       strings.TrimSpace(req.Title) != "",
		Description: strings.TrimSpace(req.Description) != "",
		Status:      req.Status != nil,
		Severity:    req.Severity != nil,
		Assignee:    req.AssignedTo != nil,
	}

	perms := httputil.GetPermissions(r.Context())
	isCreator := current.CreatedBy == userID
	isAssignee := current.AssignedTo != nil && *current.AssignedTo == userID
	if err := authz.CanUpdate(perms, isCreator, isAssignee, shape); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	input := UpdateIncidentInput{
		Title:           req.Title,
		Description:     req.Description,
		AssignedTo:      req.AssignedTo,
		ResolvedAt:      req.ResolvedAt,
		ExpectedVersion: req.Version,
	}
	if req.Status != nil {
		status := domain.IncidentStatus(*req.Status)
		input.Status = &status
	}
	if req.Severity != nil {
		severity := domain.SeverityLevel(*req.Severity)
		input.Severity = &severity
	}

	incident, err := h.service.UpdateIncident(r.Context(), id, input, userID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// DeleteIncident handles DELETE /incidents/{id}. The operation is
// idempotent: deleting a missing incident still returns 204.
func (h *Handler) DeleteIncident(w http.ResponseWriter, r *http.Request) {
	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanDelete(perms); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteIncident(r.Context(), id, httputil.GetUserID(r.Context())); err != nil {
		h.handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RestoreIncident handles POST /incidents/{id}/restore.
func (h *Handler) RestoreIncident(w http.ResponseWriter, r *http.Request) {
	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanRestore(perms); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	incident, err := h.service.RestoreIncident(r.Context(), id, httputil.GetUserID(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, authz.ErrForbidden) {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrNotFound, Status: http.StatusNotFound},
		{Error: ErrVersionConflict, Status: http.StatusConflict},
		{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
		{Error: ErrInvalidSeverity, Status: http.StatusBadRequest},
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid incident id")
		return "", false
	}
	return id, true
}

func currentUserID(r *http.Request) *string {
	if id := httputil.GetUserID(r.Context()); id != "" {
		return &id
	}
	return nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
