// Package comments provides HTTP handlers and business logic for
// incident comments.
package comments

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/incidentflow/incidentflow/internal/authz"
	"github.com/incidentflow/incidentflow/internal/incidents"
	"github.com/incidentflow/incidentflow/internal/pkg/httputil"
)

// Handler handles HTTP requests for the comments module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new comments handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the comments module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/comments", func(r chi.Router) {
		r.Get("/", h.ListComments)
		r.Post("/", h.CreateComment)
		r.Get("/{id}", h.GetComment)
		r.Put("/{id}", h.UpdateComment)
		r.Delete("/{id}", h.DeleteComment)
	})
}

// CreateCommentRequest represents the request body for creating a comment.
type CreateCommentRequest struct {
	IncidentID string `json:"incident_id" validate:"required,uuid"`
	Content    string `json:"content" validate:"required,min=1,max=4000"`
}

// UpdateCommentRequest represents the request body for updating a comment.
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

// ListComments handles GET /comments.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanRead(perms); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	var filter Filter
	if raw := r.URL.Query().Get("incidentId"); raw != "" {
		if _, err := uuid.Parse(raw); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid incident id")
			return
		}
		filter.IncidentID = &raw
	}

	comments, err := h.service.ListComments(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, comments)
}

// CreateComment handles POST /comments.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanComment(perms); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	comment, err := h.service.CreateComment(r.Context(), req.IncidentID, req.Content, httputil.GetUserID(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, comment)
}

// GetComment handles GET /comments/{id}.
func (h *Handler) GetComment(w http.ResponseWriter, r *http.Request) {
	perms := httputil.GetPermissions(r.Context())
	if err := authz.CanRead(perms); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	comment, err := h.service.GetComment(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, comment)
}

// UpdateComment handles PUT /comments/{id}. Only the author or a
// holder of edit:any may modify a comment.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	current, err := h.service.GetComment(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	perms := httputil.GetPermissions(r.Context())
	isAuthor := current.CreatedBy == httputil.GetUserID(r.Context())
	if err := authz.CanModerateComment(perms, isAuthor); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	comment, err := h.service.UpdateComment(r.Context(), id, req.Content)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, comment)
}

// DeleteComment handles DELETE /comments/{id}.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	current, err := h.service.GetComment(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	perms := httputil.GetPermissions(r.Context())
	isAuthor := current.CreatedBy == httputil.GetUserID(r.Context())
	if err := authz.CanModerateComment(perms, isAuthor); err != nil {
		httputil.Error(w, http.StatusForbidden, err.Error())
		return
	}

	if err := h.service.DeleteComment(r.Context(), id); err != nil {
		h.handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrNotFound, Status: http.StatusNotFound},
		{Error: incidents.ErrNotFound, Status: http.StatusNotFound},
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid comment id")
		return "", false
	}
	return id, true
}
