package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oriento/auth/internal/auth/service"
	"github.com/oriento/auth/pkg/httpx"
	"github.com/oriento/auth/pkg/slogx"
)

// RefreshHandler serves POST /api/auth/refresh.
type RefreshHandler struct {
	TokenService *service.TokenService
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidRequest.WriteError(w)
		return
	}
	if req.RefreshToken == "" {
		errInvalidRequest.WriteError(w)
		return
	}

	pair, principal, err := h.TokenService.RefreshSession(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionInvalid):
			errInvalidSession.WriteError(w)
		case errors.Is(err, service.ErrPersistence):
			log.Error("refresh failed on persistence", "err", err)
			errServiceUnavailable.WriteError(w)
		default:
			log.Error("refresh failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	summary := toPrincipalResponse(principal)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		Principal:    &summary,
	})
}
