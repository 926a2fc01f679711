package audit

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/incidentflow/incidentflow/internal/pkg/httputil"
)

// Handler handles HTTP requests for the audit log surface.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new audit handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers audit log routes. The caller mounts these
// behind the audit-read permission.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incident-logs", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// CreateLogRequest represents the request body for a manual log entry.
type CreateLogRequest struct {
	IncidentID  string `json:"incident_id" validate:"required,uuid"`
	Action      string `json:"action" validate:"required,min=1,max=255"`
	Details     string `json:"details" validate:"required"`
	PerformedBy string `json:"performed_by_user_id" validate:"required,uuid"`
}

// UpdateLogRequest represents the request body for editing an entry.
type UpdateLogRequest struct {
	IncidentID  string `json:"incident_id" validate:"required,uuid"`
	Action      string `json:"action" validate:"required,min=1,max=255"`
	Details     string `json:"details" validate:"required"`
	PerformedBy string `json:"performed_by_user_id" validate:"required,uuid"`
}

// List handles GET /incident-logs.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{}
	if incidentID := r.URL.Query().Get("incidentId"); incidentID != "" {
		if _, err := uuid.Parse(incidentID); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid incident id")
			return
		}
		filter.IncidentID = &incidentID
	}

	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, entries)
}

// Get handles GET /incident-logs/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, entry)
}

// Create handles POST /incident-logs.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	entry := &domain.IncidentLog{
		IncidentID:  req.IncidentID,
		Action:      req.Action,
		Details:     req.Details,
		PerformedBy: req.PerformedBy,
	}
	if err := h.service.Append(r.Context(), entry); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, entry)
}

// Update handles PUT /incident-logs/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req UpdateLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	entry := &domain.IncidentLog{
		ID:          id,
		IncidentID:  req.IncidentID,
		Action:      req.Action,
		Details:     req.Details,
		PerformedBy: req.PerformedBy,
	}
	if err := h.service.Update(r.Context(), entry); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /incident-logs/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrNotFound, Status: http.StatusNotFound},
	})
}
