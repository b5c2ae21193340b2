package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oriento/auth/internal/auth/service"
	"github.com/oriento/auth/pkg/httpx"
	"github.com/oriento/auth/pkg/slogx"
)

// LoginHandler serves POST /api/auth/login.
type LoginHandler struct {
	AuthService *service.AuthService
}

type loginRequest struct {
	Email    string `json:"email"`
	TaxID    string `json:"tax_id"`
	Password string `json:"password"`
}

// identifier returns whichever login identifier the client sent, email
// taking precedence. Empty when neither is present; the service records
// that as a failed attempt.
func (req loginRequest) identifier() string {
	if req.Email != "" {
		return req.Email
	}
	return req.TaxID
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidRequest.WriteError(w)
		return
	}

	pair, principal, err := h.AuthService.Login(ctx, req.identifier(), req.Password, httpx.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			errInvalidCredentials.WriteError(w)
		case errors.Is(err, service.ErrPersistence):
			log.Error("login failed on persistence", "err", err)
			errServiceUnavailable.WriteError(w)
		default:
			log.Error("login failed", "err", err)
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
