package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oriento/auth/internal/auth/service"
	"github.com/oriento/auth/pkg/slogx"
)

// LogoutHandler serves POST /api/auth/logout.
type LogoutHandler struct {
	TokenService *service.TokenService
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidRequest.WriteError(w)
		return
	}
	if req.RefreshToken == "" {
		errInvalidRequest.WriteError(w)
		return
	}

	if err := h.TokenService.RevokeSession(ctx, req.RefreshToken); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionInvalid):
			errInvalidSession.WriteError(w)
		case errors.Is(err, service.ErrPersistence):
			log.Error("logout failed on persistence", "err", err)
			errServiceUnavailable.WriteError(w)
		default:
			log.Error("logout failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
