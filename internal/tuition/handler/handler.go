package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tuitionhub/internal/transport/http/shared"
	"tuitionhub/internal/tuition/models"
	"tuitionhub/internal/tuition/service"
	dErrors "tuitionhub/pkg/domain-errors"
)

// Handler exposes the tuition routes.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the read-only listing and detail routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/tuitions", h.list)
	r.Get("/tuitions/{id}", h.get)
}

// RegisterAuthed mounts the mutating routes.
func (h *Handler) RegisterAuthed(r chi.Router) {
	r.Post("/tuitions", h.create)
	r.Patch("/tuitions/{id}", h.update)
	r.Delete("/tuitions/{id}", h.remove)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}

	tuitions, err := h.service.List(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	if tuitions == nil {
		tuitions = []*models.Tuition{}
	}
	shared.WriteJSON(w, http.StatusOK, tuitions)
}

func parseFilter(r *http.Request) (models.Filter, error) {
	q := r.URL.Query()
	filter := models.Filter{
		StudentEmail: q.Get("studentEmail"),
		ClassLevel:   q.Get("classLevel"),
		Subject:      q.Get("subject"),
		Location:     q.Get("location"),
		Search:       q.Get("search"),
	}

	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return models.Filter{}, err
		}
		filter.Status = status
	}

	switch sortBy := q.Get("sortBy"); sortBy {
	case "", models.SortByCreatedAt:
		filter.SortBy = models.SortByCreatedAt
	case models.SortBySalary:
		filter.SortBy = models.SortBySalary
	default:
		return models.Filter{}, dErrors.New(dErrors.CodeBadRequest, "sortBy must be salary or createdAt")
	}

	switch order := q.Get("order"); order {
	case "", "desc":
	case "asc":
		filter.SortAsc = true
	default:
		return models.Filter{}, dErrors.New(dErrors.CodeBadRequest, "order must be asc or desc")
	}

	return filter, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, h.logger, dErrors.New(dErrors.CodeBadRequest, "invalid tuition id"))
		return
	}

	tuition, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, tuition)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}

	tuition, err := h.service.Create(r.Context(), input)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, tuition)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, h.logger, dErrors.New(dErrors.CodeBadRequest, "invalid tuition id"))
		return
	}

	var update models.Update
	if err := shared.DecodeJSON(r, &update); err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}

	tuition, err := h.service.Update(r.Context(), id, update)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, tuition)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, h.logger, dErrors.New(dErrors.CodeBadRequest, "invalid tuition id"))
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusNoContent, nil)
}
