package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/content-repository/pkg/contentrepo"
)

// StoreEntityRequest is the request body for creating or updating an entity
type StoreEntityRequest struct {
	Name         string `json:"name"`
	Kind         string `json:"kind,omitempty"` // "entity" (default) or "group"
	ParentID     *int64 `json:"parent_id,omitempty"`
	ParentAnchor string `json:"parent_anchor,omitempty"`
	Content      string `json:"content,omitempty"`
}

// EntityResponse is the response body for a stored entity
type EntityResponse struct {
	ID string `json:"id"`
}

// EntityHandler handles HTTP requests for the entity lifecycle
type EntityHandler struct {
	service contentrepo.Service
	logger  *slog.Logger
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(service contentrepo.Service, logger *slog.Logger) *EntityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntityHandler{service: service, logger: logger}
}

// Routes returns the routes for entities and the recycle bin
func (h *EntityHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/entities", h.CreateEntity)
	r.Put("/entities/{id}", h.UpdateEntity)
	r.Delete("/entities/{id}", h.RemoveEntity)

	r.Post("/recyclebin/{id}/recover", h.RecoverEntity)

	return r
}

// CreateEntity creates a new entity or group
func (h *EntityHandler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	var req StoreEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", contentrepo.ErrInvalidArgument, err))
		return
	}

	entity, err := req.entity()
	if err != nil {
		writeError(w, r, err)
		return
	}

	identifier, err := h.service.Store(r.Context(), entity)
	if err != nil {
		h.logger.Error("Failed to create entity", "error", err)
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, EntityResponse{ID: identifier.String()})
}

// UpdateEntity stores a new version of the entity named by {id}, which is a
// numeric id or an anchor
func (h *EntityHandler) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	var req StoreEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", contentrepo.ErrInvalidArgument, err))
		return
	}

	entity, err := req.entity()
	if err != nil {
		writeError(w, r, err)
		return
	}
	entity = entity.WithIdentifier(parseIdentifier(chi.URLParam(r, "id")))

	identifier, err := h.service.Store(r.Context(), entity)
	if err != nil {
		h.logger.Error("Failed to update entity", "error", err)
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, EntityResponse{ID: identifier.String()})
}

// RemoveEntity moves an entity or empty group into the recycle bin
func (h *EntityHandler) RemoveEntity(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.Remove(r.Context(), id); err != nil {
		h.logger.Error("Failed to remove entity", "id", id, "error", err)
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RecoverEntity restores an entity from the recycle bin
func (h *EntityHandler) RecoverEntity(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.Recover(r.Context(), id); err != nil {
		h.logger.Error("Failed to recover entity", "id", id, "error", err)
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (req StoreEntityRequest) entity() (contentrepo.Entity, error) {
	var entity contentrepo.Entity
	switch contentrepo.Kind(req.Kind) {
	case "", contentrepo.KindEntity:
		entity = contentrepo.NewEntity(req.Name, []byte(req.Content))
	case contentrepo.KindGroup:
		if req.Content != "" {
			return contentrepo.Entity{}, fmt.Errorf("%w: groups carry no content", contentrepo.ErrInvalidArgument)
		}
		entity = contentrepo.NewGroup(req.Name)
	default:
		return contentrepo.Entity{}, fmt.Errorf("%w: unknown kind %q", contentrepo.ErrInvalidArgument, req.Kind)
	}

	switch {
	case req.ParentID != nil && req.ParentAnchor != "":
		return contentrepo.Entity{}, fmt.Errorf("%w: parent_id and parent_anchor are exclusive", contentrepo.ErrInvalidArgument)
	case req.ParentID != nil:
		entity = entity.WithParent(contentrepo.IdentifierOf(contentrepo.ID(*req.ParentID)))
	case req.ParentAnchor != "":
		entity = entity.WithParent(contentrepo.AnchorOf(req.ParentAnchor))
	}
	return entity, nil
}

func parseID(raw string) (contentrepo.ID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid entity id %q", contentrepo.ErrInvalidArgument, raw)
	}
	return contentrepo.ID(id), nil
}

func parseIdentifier(raw string) contentrepo.Identifier {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return contentrepo.IdentifierOf(contentrepo.ID(id))
	}
	return contentrepo.AnchorOf(raw)
}
