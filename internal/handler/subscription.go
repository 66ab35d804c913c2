package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mailsub/mailsub/internal/handler/dto"
	"github.com/mailsub/mailsub/internal/mail"
	"github.com/mailsub/mailsub/internal/service"
	"github.com/mailsub/mailsub/internal/validation"
)

// SubscriptionHandler handles HTTP requests for subscription operations.
type SubscriptionHandler struct {
	svc       *service.SubscriptionService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(svc *service.SubscriptionService, v *validation.Validator, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		svc:       svc,
		validator: v,
		logger:    logger,
	}
}

// Routes returns the subscription routes, mounted at /api/users.
func (h *SubscriptionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Subscribe)
	r.Get("/", h.List)
	r.Get("/mails", h.ListMails)
	r.Delete("/{id}", h.Delete)
	return r
}

// Subscribe handles POST /api/users.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeMailRequest(w, r, h.validator)
	if !ok {
		return
	}

	sub, err := h.svc.Subscribe(r.Context(), inputFrom(req))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("subscription_created",
		"subscription_id", sub.ID,
		"mail", mail.Redact(sub.MailBase64),
		"category", sub.Category,
		"subcategory", sub.Subcategory,
	)

	writeJSON(w, http.StatusCreated, dto.ToSubscriptionResponse(sub))
}

// List handles GET /api/users.
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if len(subs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToSubscriptionListResponse(subs))
}

// ListMails handles GET /api/users/mails?category=&subcategory=.
func (h *SubscriptionHandler) ListMails(w http.ResponseWriter, r *http.Request) {
	params, ok := requireQuery(w, r, "category", "subcategory")
	if !ok {
		return
	}

	subs, err := h.svc.ListByCategory(r.Context(), params[0], params[1])
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if len(subs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToMailList(subs))
}

// Delete handles DELETE /api/users/{id}.
func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Subscription ID is required")
		return
	}

	deleted, err := h.svc.DeleteByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "SUBSCRIPTION_NOT_FOUND", "Subscription not found")
		return
	}

	h.logger.Info("subscription_deleted", "subscription_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SubscriptionHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMailTooLong):
		writeError(w, http.StatusBadRequest, "MAIL_TOO_LONG", "Mail exceeds maximum length")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
