package http

import (
	"net/http"

	"github.com/oriento/auth/pkg/httpx"
	"github.com/oriento/auth/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery, so
// resource services can verify access tokens offline.
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys.PublicJWKS())
	}
}
