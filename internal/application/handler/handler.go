package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tuitionhub/internal/application/models"
	"tuitionhub/internal/application/service"
	"tuitionhub/internal/transport/http/shared"
	dErrors "tuitionhub/pkg/domain-errors"
)

// Handler exposes the application routes. All of them require authentication.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/applications", h.apply)
	r.Get("/applications", h.list)
	r.Get("/applications/{id}", h.get)
	r.Patch("/applications/{id}", h.updateStatus)
	r.Delete("/applications/{id}", h.remove)
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	var input service.ApplyInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}

	application, err := h.service.Apply(r.Context(), input)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, application)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	applications, err := h.service.ListForCaller(r.Context())
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	if applications == nil {
		applications = []*models.Application{}
	}
	shared.WriteJSON(w, http.StatusOK, applications)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, h.logger, dErrors.New(dErrors.CodeBadRequest, "invalid application id"))
		return
	}

	application, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, application)
}

type statusUpdate struct {
	Status models.Status `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, h.logger, dErrors.New(dErrors.CodeBadRequest, "invalid application id"))
		return
	}

	var update statusUpdate
	if err := shared.DecodeJSON(r, &update); err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}

	application, err := h.service.UpdateStatus(r.Context(), id, update.Status)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, application)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, h.logger, dErrors.New(dErrors.CodeBadRequest, "invalid application id"))
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusNoContent, nil)
}
