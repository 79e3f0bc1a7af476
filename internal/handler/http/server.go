package http

import (
	"LinkLoom-Backend/internal/auth"
	"LinkLoom-Backend/internal/cache"
	"LinkLoom-Backend/internal/clicks"
	"LinkLoom-Backend/internal/config"
	"LinkLoom-Backend/internal/middleware"
	"LinkLoom-Backend/internal/repository"
	"LinkLoom-Backend/internal/service"
	"net/http"
	"strings"

	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Server bundles all HTTP handlers behind one mux.
type Server struct {
	authHandlers    *auth.Handlers
	linksHandler    *LinksHandler
	redirectHandler *RedirectHandler
	healthHandler   *HealthHandler
	authMiddleware  *auth.Middleware
	rateLimit       func(http.HandlerFunc) http.HandlerFunc
	log             *zap.Logger
}

// NewServer wires the handlers.
func NewServer(
	storage repository.Storage,
	shortener *service.Shortener,
	accountant *clicks.Accountant,
	linkCache *cache.LinkCache,
	jwtService *auth.JWTService,
	passwordService *auth.PasswordService,
	cfg *config.Config,
	log *zap.Logger,
) *Server {
	return &Server{
		authHandlers:    auth.NewHandlers(storage, jwtService, passwordService, log),
		linksHandler:    NewLinksHandler(storage, shortener, linkCache, log, cfg.URLShortener.BaseURL),
		redirectHandler: NewRedirectHandler(storage, linkCache, accountant, log),
		healthHandler:   NewHealthHandler(storage, accountant, log),
		authMiddleware:  auth.NewMiddleware(jwtService, log),
		rateLimit:       middleware.RateLimit(cfg.RateLimit.Enabled, cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		log:             log,
	}
}

// SetupRoutes builds the route table.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Health checks (no auth)
	mux.HandleFunc("/health", s.healthHandler.Health)
	mux.HandleFunc("/ready", s.healthHandler.Ready)
	mux.HandleFunc("/metrics", s.healthHandler.Metrics)

	// Swagger documentation
	mux.Handle("/api/v1/", httpSwagger.WrapHandler)

	// Auth endpoints (no auth)
	mux.HandleFunc("/api/auth/register", s.withCORS(s.authHandlers.Register))
	mux.HandleFunc("/api/auth/login", s.withCORS(s.authHandlers.Login))
	mux.HandleFunc("/api/auth/refresh", s.withCORS(s.authHandlers.Refresh))

	// Creation is public: anonymous callers get system codes, custom slugs
	// need a principal. Rate limited; the redirect path below is not.
	mux.HandleFunc("/api/shorten", s.withCORS(s.rateLimit(s.authMiddleware.OptionalAuth(s.linksHandler.CreateLink))))

	// Management endpoints (auth required)
	mux.HandleFunc("/api/links", s.withCORS(s.authMiddleware.RequireAuth(s.linksHandler.ListLinks)))
	mux.HandleFunc("/api/stats/", s.withCORS(s.authMiddleware.RequireAuth(s.linksHandler.GetStats)))
	mux.HandleFunc("/api/links/", s.withCORS(s.authMiddleware.RequireAuth(s.handleLinksAPI)))

	// Redirect endpoint (no auth) - must be last
	mux.HandleFunc("/", s.redirectHandler.HandleRedirect)

	return mux
}

// handleLinksAPI routes /api/links/{code} and /api/links/{code}/qr by method.
func (s *Server) handleLinksAPI(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/qr") {
		if r.Method == http.MethodPut {
			s.linksHandler.SetQR(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.Method {
	case http.MethodDelete:
		s.linksHandler.DeleteLink(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// withCORS adds CORS headers to a handler.
func (s *Server) withCORS(handler http.HandlerFunc) http.HandlerFunc {
	return s.authMiddleware.CORS(handler)
}

// isSystemPath tells the redirect handler which paths are never short codes.
func isSystemPath(path string) bool {
	systemPaths := []string{
		"/api/",
		"/health",
		"/ready",
		"/metrics",
		"/swagger/",
		"/docs/",
	}

	for _, systemPath := range systemPaths {
		if strings.HasPrefix(path, systemPath) {
			return true
		}
	}

	return false
}
