package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/session"
	"go.uber.org/zap"
)

type SessionHandler struct {
	store   *session.Store
	timeout time.Duration
	logger  *zap.Logger
}

func NewSessionHandler(store *session.Store, timeout time.Duration, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

// LoginRequestDTO is what the login screen hands over after the backend
// accepted the credentials.
type LoginRequestDTO struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

type SessionResponse struct {
	LoggedIn bool         `json:"logged_in"`
	User     session.User `json:"user"`
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "token is required", "token")
		return
	}
	if err := h.store.SaveLogin(ctx, req.Token, req.User); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondSession(ctx, w)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	h.respondSession(ctx, w)
}

// Logout forgets the token and the user. The cart stays.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.Logout(ctx); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) respondSession(ctx context.Context, w http.ResponseWriter) {
	user, err := h.store.User(ctx)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, SessionResponse{
		LoggedIn: h.store.LoggedIn(ctx),
		User:     user,
	})
}
