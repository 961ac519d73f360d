package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tuitionhub/internal/payment/models"
	"tuitionhub/internal/payment/service"
	"tuitionhub/internal/transport/http/shared"
	"tuitionhub/pkg/requestcontext"
)

// Handler exposes the payment routes.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterCallback mounts the provider success redirect. It carries no user
// credential: the provider redirect cannot attach one, and every settlement
// input is re-resolved server-side, so idempotency is the safety mechanism.
func (h *Handler) RegisterCallback(r chi.Router) {
	r.Patch("/payments/success", h.settle)
}

// RegisterAuthed mounts checkout and the caller-scoped ledger views.
func (h *Handler) RegisterAuthed(r chi.Router) {
	r.Post("/payments/checkout-session", h.createCheckoutSession)
	r.Get("/payments/tutor", h.listForTutor)
	r.Get("/payments/student", h.listForStudent)
}

// RegisterAdmin mounts the earnings report. The router wraps it in the admin
// role gate.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/reports", h.report)
}

func (h *Handler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var input service.CheckoutInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}

	session, err := h.service.CreateCheckoutSession(r.Context(), input)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, session)
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.Settle(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, receipt)
}

func (h *Handler) listForTutor(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListByTutor(r.Context(), requestcontext.Email(r.Context()))
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	writeRecords(w, records)
}

func (h *Handler) listForStudent(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListByStudent(r.Context(), requestcontext.Email(r.Context()))
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	writeRecords(w, records)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context())
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, report)
}

func writeRecords(w http.ResponseWriter, records []*models.PaymentRecord) {
	if records == nil {
		records = []*models.PaymentRecord{}
	}
	shared.WriteJSON(w, http.StatusOK, records)
}
