package http

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oriento/auth/internal/auth/service"
	"github.com/oriento/auth/internal/auth/store/drivers/sqlite"
	"github.com/oriento/auth/pkg/cryptox"
	"github.com/oriento/auth/pkg/jwtx"
	"github.com/oriento/auth/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "authhttp")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// newTestRouter wires the whole stack against a throwaway database with
// generous default limits so ordinary tests never trip the gate.
func newTestRouter(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	signer, err := jwtx.NewSignerRS256("test-key", pemKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	verifier := jwtx.NewVerifierRS256(keys, "oriento")

	tokens := &service.TokenService{
		Signer:     signer,
		Store:      st,
		Issuer:     "oriento",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 360 * time.Hour,
	}
	auth := &service.AuthService{
		Store:    st,
		Tokens:   tokens,
		Attempts: service.NewAttemptRegistry(),
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	r := NewRouter(keys, verifier, "test", st, ratelimit.NewRegistry(), logger)
	r.DefaultPolicy = ratelimit.Policy{Capacity: 1000, RefillTokens: 1000, RefillWindow: time.Minute}
	r.LoginPolicy = ratelimit.Policy{Capacity: 5, RefillTokens: 5, RefillWindow: 15 * time.Minute}
	r.AuthService = auth
	r.TokenService = tokens
	r.UserService = &service.UserService{Store: st}
	r.ApplyRoutes()
	return r
}

func doJSON(t *testing.T, router *Router, method, path, ip string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = ip + ":12345"
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signup(t *testing.T, router *Router, email, password string) {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/users", "10.9.9.9", map[string]string{
		"email":    email,
		"name":     "Test Principal",
		"password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestLoginRefreshLogoutFlow(t *testing.T) {
	router := newTestRouter(t)
	signup(t, router, "flow@example.com", "correct horse battery")

	// Login.
	w := doJSON(t, router, http.MethodPost, "/api/auth/login", "10.0.0.1", map[string]string{
		"email":    "flow@example.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pair tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)
	require.EqualValues(t, 900, pair.ExpiresIn)
	require.NotNil(t, pair.Principal)
	require.Equal(t, "Test Principal", pair.Principal.Name)
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	// The access token opens /users/me.
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	me := httptest.NewRecorder()
	router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code, me.Body.String())

	var p principalResponse
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &p))
	require.NotNil(t, p.Email)
	require.Equal(t, "flow@example.com", *p.Email)

	// Refresh keeps the same refresh token.
	w = doJSON(t, router, http.MethodPost, "/api/auth/refresh", "10.0.0.1", map[string]string{
		"refreshToken": pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var refreshed tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
	require.Equal(t, pair.RefreshToken, refreshed.RefreshToken)
	require.NotEmpty(t, refreshed.AccessToken)
	require.NotNil(t, refreshed.Principal)
	require.Equal(t, "Test Principal", refreshed.Principal.Name)

	// Logout tears the session down.
	w = doJSON(t, router, http.MethodPost, "/api/auth/logout", "10.0.0.1", map[string]string{
		"refreshToken": pair.RefreshToken,
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	// The refresh token is dead afterwards.
	w = doJSON(t, router, http.MethodPost, "/api/auth/refresh", "10.0.0.1", map[string]string{
		"refreshToken": pair.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginAcceptsTaxID(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/users", "10.0.0.10", map[string]string{
		"tax_id":   "98765432100",
		"name":     "Test Principal",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "10.0.0.10", map[string]string{
		"tax_id":   "98765432100",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pair tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotNil(t, pair.Principal)
	require.NotNil(t, pair.Principal.TaxID)
	require.Equal(t, "98765432100", *pair.Principal.TaxID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router := newTestRouter(t)
	signup(t, router, "bad@example.com", "correct horse battery")

	w := doJSON(t, router, http.MethodPost, "/api/auth/login", "10.0.0.2", map[string]string{
		"email":    "bad@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "invalid_credentials", body["error"])

	// Unknown account answers identically.
	w2 := doJSON(t, router, http.MethodPost, "/api/auth/login", "10.0.0.2", map[string]string{
		"email":    "ghost@example.com",
		"password": "wrong",
	})
	require.Equal(t, w.Code, w2.Code)

	var body2 map[string]string
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &body2))
	require.Equal(t, body["error"], body2["error"])
}

func TestLoginRateLimitKicksInAfterFiveAttempts(t *testing.T) {
	router := newTestRouter(t)

	attempt := func(ip string) *httptest.ResponseRecorder {
		return doJSON(t, router, http.MethodPost, "/api/auth/login", ip, map[string]string{
			"email":    "nobody@example.com",
			"password": "wrong",
		})
	}

	for i := range 5 {
		w := attempt("10.0.0.3")
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i)
	}

	w := attempt("10.0.0.3")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
	require.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.EqualValues(t, 5, body["maxAttempts"])
	require.Contains(t, body, "retryAfter")

	// Another client is unaffected.
	require.Equal(t, http.StatusUnauthorized, attempt("10.0.0.4").Code)
}

func TestLoginRateLimitIsPerRoute(t *testing.T) {
	router := newTestRouter(t)
	signup(t, router, "routes@example.com", "correct horse battery")

	// Exhaust the login budget.
	for range 6 {
		doJSON(t, router, http.MethodPost, "/api/auth/login", "10.0.0.5", map[string]string{
			"email":    "routes@example.com",
			"password": "wrong",
		})
	}

	// The refresh route still answers for the same client (401 for the
	// garbage token, not 429).
	w := doJSON(t, router, http.MethodPost, "/api/auth/refresh", "10.0.0.5", map[string]string{
		"refreshToken": "garbage",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUsersMeRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.RemoteAddr = "10.0.0.6:12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestSignupConflict(t *testing.T) {
	router := newTestRouter(t)
	signup(t, router, "twice@example.com", "correct horse battery")

	w := doJSON(t, router, http.MethodPost, "/api/users", "10.0.0.7", map[string]string{
		"email":    "twice@example.com",
		"name":     "Test Principal",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestJWKSEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	req.RemoteAddr = "10.0.0.8:12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var jwks jwtx.JWKS
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jwks))
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "RSA", jwks.Keys[0].Kty)
}

func TestHealthProbes(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/livez", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.9:12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, path)

		var h healthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
		require.Equal(t, "ok", h.Status, path)
	}
}

func TestHealthProbesAreNotRateLimited(t *testing.T) {
	router := newTestRouter(t)

	// Far beyond any per-route budget; probes bypass the gate entirely.
	for i := range 50 {
		req := httptest.NewRequest(http.MethodGet, "/livez", nil)
		req.RemoteAddr = "10.0.0.10:12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, fmt.Sprintf("probe %d", i))
	}
}
