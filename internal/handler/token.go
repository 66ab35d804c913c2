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

// TokenHandler handles HTTP requests for verification tokens.
type TokenHandler struct {
	svc       *service.TokenService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(svc *service.TokenService, v *validation.Validator, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		svc:       svc,
		validator: v,
		logger:    logger,
	}
}

// Routes returns the token routes, mounted at /api/tokens.
func (h *TokenHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.Lookup)
	r.Post("/refresh", h.Refresh)
	r.Get("/mails", h.ListMails)
	r.Get("/{token}", h.Get)
	r.Delete("/{token}", h.Delete)
	return r
}

// Create handles POST /api/tokens.
func (h *TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeMailRequest(w, r, h.validator)
	if !ok {
		return
	}

	token, err := h.svc.Create(r.Context(), inputFrom(req))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("token_created",
		"token_id", token.ID,
		"mail", mail.Redact(token.MailBase64),
		"category", token.Category,
		"subcategory", token.Subcategory,
	)

	writeJSON(w, http.StatusCreated, dto.ToTokenCreatedResponse(token))
}

// Lookup handles GET /api/tokens?mail=&category=&subcategory=.
func (h *TokenHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	params, ok := requireQuery(w, r, "mail", "category", "subcategory")
	if !ok {
		return
	}

	tokens, err := h.svc.FindByLookup(r.Context(), service.Input{
		Mail:        params[0],
		Category:    params[1],
		Subcategory: params[2],
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if len(tokens) == 0 {
		status = http.StatusNotFound
	}
	writeJSON(w, status, dto.ToTokenSummaryList(tokens))
}

// Refresh handles POST /api/tokens/refresh.
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeMailRequest(w, r, h.validator)
	if !ok {
		return
	}

	res, err := h.svc.RefreshOrCreate(r.Context(), inputFrom(req))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("token_"+res.Outcome.String(),
		"token_id", res.Token.ID,
		"mail", mail.Redact(res.Token.MailBase64),
		"category", res.Token.Category,
		"subcategory", res.Token.Subcategory,
	)

	status := http.StatusOK
	if res.Created() {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.ToRefreshResponse(res))
}

// Get handles GET /api/tokens/{token}.
func (h *TokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	value := chi.URLParam(r, "token")
	if value == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TOKEN", "Token is required")
		return
	}

	token, err := h.svc.FindByToken(r.Context(), value)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTokenResponse(token))
}

// Delete handles DELETE /api/tokens/{token}.
func (h *TokenHandler) Delete(w http.ResponseWriter, r *http.Request) {
	value := chi.URLParam(r, "token")
	if value == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TOKEN", "Token is required")
		return
	}

	deleted, err := h.svc.DeleteByToken(r.Context(), value)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "TOKEN_NOT_FOUND", "Token not found")
		return
	}

	h.logger.Info("token_deleted")
	w.WriteHeader(http.StatusNoContent)
}

// ListMails handles GET /api/tokens/mails?category=&subcategory=.
func (h *TokenHandler) ListMails(w http.ResponseWriter, r *http.Request) {
	params, ok := requireQuery(w, r, "category", "subcategory")
	if !ok {
		return
	}

	tokens, err := h.svc.ListByCategory(r.Context(), params[0], params[1])
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if len(tokens) == 0 {
		status = http.StatusNotFound
	}
	writeJSON(w, status, dto.ToMailTokenList(tokens))
}

func (h *TokenHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "TOKEN_NOT_FOUND", "Token not found")
	case errors.Is(err, service.ErrMailTooLong):
		writeError(w, http.StatusBadRequest, "MAIL_TOO_LONG", "Mail exceeds maximum length")
	case errors.Is(err, service.ErrTokenValueConflict):
		h.logger.Error("token_value_conflict", "error", err)
		writeError(w, http.StatusConflict, "TOKEN_CONFLICT", "Could not allocate a unique token")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

func inputFrom(req dto.MailRequest) service.Input {
	return service.Input{
		Mail:        req.Mail,
		Category:    req.Category,
		Subcategory: req.Subcategory,
	}
}
