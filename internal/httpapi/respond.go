package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/checkout"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	// the status line is already out; nothing useful to do on failure
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message, details string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// writeError maps the error taxonomy to a status code.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var ve *checkout.ValidationError
	var re *api.RemoteError
	switch {
	case errors.As(err, &ve):
		respondError(w, http.StatusUnprocessableEntity, "validation_failed", ve.Reason, ve.Field)
	case errors.Is(err, checkout.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error(), "")
	case errors.Is(err, checkout.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error(), "")
	case errors.Is(err, cart.ErrPersistence):
		logger.Error("cart storage failure", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "persistence_error", "cart storage failed", "")
	case api.IsUnauthorized(err):
		respondError(w, http.StatusUnauthorized, "unauthorized", "login required", "")
	case errors.As(err, &re):
		respondError(w, http.StatusBadGateway, "remote_error", re.Error(), re.Op)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out", "")
	default:
		logger.Error("unhandled request error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error", "")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", err.Error())
		return false
	}
	return true
}
