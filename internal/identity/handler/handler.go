package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tuitionhub/internal/identity/models"
	"tuitionhub/internal/identity/service"
	"tuitionhub/internal/transport/http/shared"
	dErrors "tuitionhub/pkg/domain-errors"
)

const defaultTutorLimit = 6

// Handler exposes the identity routes.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the routes that need no credential: registration and
// the role lookup used by clients to shape their UI.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/users", h.register)
	r.Get("/users/role/{email}", h.roleOf)
	r.Get("/tutors/latest", h.latestTutors)
}

// RegisterAuthed mounts the owner-gated profile routes.
func (h *Handler) RegisterAuthed(r chi.Router) {
	r.Get("/users/{email}", h.profile)
	r.Patch("/users/{email}", h.updateProfile)
}

// RegisterAdmin mounts the user management routes. The router wraps these in
// the admin role gate.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/users", h.listUsers)
	r.Patch("/users/{id}", h.adminUpdateUser)
	r.Delete("/users/{id}", h.adminDeleteUser)
}

type registerResponse struct {
	User    *models.User `json:"user"`
	Created bool         `json:"created"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}

	user, created, err := h.service.Register(r.Context(), input)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	shared.WriteJSON(w, status, registerResponse{User: user, Created: created})
}

type roleResponse struct {
	Role  models.Role `json:"role"`
	Found bool        `json:"found"`
}

func (h *Handler) roleOf(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	role, found, err := h.service.RoleOf(r.Context(), email)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, roleResponse{Role: role, Found: found})
}

func (h *Handler) latestTutors(w http.ResponseWriter, r *http.Request) {
	limit := defaultTutorLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			shared.WriteError(w, r, h.logger, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	tutors, err := h.service.LatestTutors(r.Context(), limit)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	if tutors == nil {
		tutors = []*models.User{}
	}
	shared.WriteJSON(w, http.StatusOK, tutors)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	user, err := h.service.Profile(r.Context(), email)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	var update models.ProfileUpdate
	if err := shared.DecodeJSON(r, &update); err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), email, update)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	shared.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) adminUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, h.logger, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	var update models.AdminUpdate
	if err := shared.DecodeJSON(r, &update); err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}

	user, err := h.service.AdminUpdateUser(r.Context(), id, update)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, h.logger, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	if err := h.service.AdminDeleteUser(r.Context(), id); err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusNoContent, nil)
}
