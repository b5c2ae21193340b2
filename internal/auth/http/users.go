package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/oriento/auth/internal/auth/domain"
	"github.com/oriento/auth/internal/auth/service"
	"github.com/oriento/auth/pkg/httpx"
	"github.com/oriento/auth/pkg/slogx"
)

// UsersHandler serves POST /api/users (signup) and GET /api/users/me.
type UsersHandler struct {
	UserService *service.UserService
}

type createPrincipalRequest struct {
	Email    string `json:"email,omitempty"`
	TaxID    string `json:"tax_id,omitempty"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req createPrincipalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidRequest.WriteError(w)
		return
	}

	p, err := h.UserService.CreatePrincipal(ctx, service.CreatePrincipalInput{
		Email:    req.Email,
		TaxID:    req.TaxID,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			errInvalidRequest.WriteError(w)
		case errors.Is(err, service.ErrAlreadyExists):
			errAlreadyExists.WriteError(w)
		case errors.Is(err, service.ErrPersistence):
			log.Error("create principal failed on persistence", "err", err)
			errServiceUnavailable.WriteError(w)
		default:
			log.Error("create principal failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toPrincipalResponse(p))
}

// HandleMe returns the authenticated principal. Requires AuthnMiddleware
// upstream to have injected the subject.
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	principalID := httpx.UserIDFromContext(ctx)
	if principalID == "" {
		errInvalidToken.WriteError(w)
		return
	}

	p, err := h.UserService.GetPrincipalByID(ctx, principalID)
	if err != nil {
		log.Warn("failed to load principal", "principal_id", principalID, "err", err)
		if errors.Is(err, service.ErrPersistence) {
			errServiceUnavailable.WriteError(w)
			return
		}
		errServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toPrincipalResponse(p))
}

func toPrincipalResponse(p domain.Principal) principalResponse {
	return principalResponse{
		ID:        p.ID,
		Email:     p.Email,
		TaxID:     p.TaxID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
