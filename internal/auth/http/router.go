package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/oriento/auth/internal/auth/service"
	"github.com/oriento/auth/internal/auth/store"
	"github.com/oriento/auth/pkg/httpx"
	"github.com/oriento/auth/pkg/jwtx"
	"github.com/oriento/auth/pkg/ratelimit"
	"github.com/oriento/auth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store   store.Store
	buckets *ratelimit.Registry

	// DefaultPolicy gates every route; LoginPolicy is the tighter budget
	// for the login route.
	DefaultPolicy ratelimit.Policy
	LoginPolicy   ratelimit.Policy

	AuthService  *service.AuthService
	TokenService *service.TokenService
	UserService  *service.UserService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	buckets *ratelimit.Registry,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		buckets:      buckets,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// POST /login - tight per-client budget, 429 body reports maxAttempts
	loginHandler := &LoginHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitMiddleware(r.buckets, r.LoginPolicy,
				httpx.RateLimitOptions{ReportMaxAttempts: true}),
		),
	)

	// POST /refresh - default budget
	refreshHandler := &RefreshHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(r.buckets, r.DefaultPolicy),
		),
	)

	// POST /logout - default budget
	logoutHandler := &LogoutHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(r.buckets, r.DefaultPolicy),
		),
	)

	// GET /jwks.json - public key discovery
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(r.buckets, r.DefaultPolicy),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	// POST /users - public signup endpoint
	r.Mux.Handle("POST /api/users",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.RateLimitByIP(r.buckets, r.DefaultPolicy),
		),
	)

	// GET /users/me - requires a valid access token
	r.Mux.Handle("GET /api/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByIP(r.buckets, r.DefaultPolicy),
		),
	)
}

func (r *Router) registerSystem() {
	// Health probes skip rate limiting so monitoring never gets throttled
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys))
}
