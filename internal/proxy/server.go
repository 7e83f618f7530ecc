package proxy

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/n0madic/go-lanbridge/internal/auth"
	"github.com/n0madic/go-lanbridge/internal/config"
	"github.com/n0madic/go-lanbridge/internal/normalize"
	"github.com/n0madic/go-lanbridge/internal/upstream"
)

// upstreamDoer abstracts the ChatGPT upstream client so the proxy handlers can
// be tested with a mock without a real network connection.
type upstreamDoer interface {
	Do(context.Context, *upstream.Request) (*upstream.Response, error)
}

// Server is the LAN bridge HTTP server. It holds only immutable configuration
// and clients that are safe for concurrent use.
type Server struct {
	Config         *config.ServerConfig
	Logger         *slog.Logger
	normalizer     *normalize.Normalizer
	upstreamClient upstreamDoer
	httpServer     *http.Server
}

const serverAccessTokenError = "Invalid or missing server access token"

// New creates a new bridge server with all routes registered.
func New(cfg *config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	resolver := auth.NewResolver(cfg.CodexHomeDir(), logger)

	s := &Server{
		Config:         cfg,
		Logger:         logger,
		normalizer:     normalize.New(cfg.ModelAliases),
		upstreamClient: upstream.NewClient(cfg.UpstreamURL, cfg.UpstreamTimeout, resolver, logger),
	}

	s.httpServer = &http.Server{
		Addr:    cfg.Addr(),
		Handler: s.Handler(),
		// ReadTimeout bounds reading the request.
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: event streams last as long as the upstream keeps sending.
		IdleTimeout: 120 * time.Second,
	}

	return s
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(s.authMiddleware)
	r.Use(s.verboseMiddleware)

	// Health
	r.Get("/", s.handleHealth)
	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/responses", s.handleResponses)
		v1.Post("/chat/completions", s.handleChatCompletions)
	})

	return r
}

// ListenAndServe starts the bridge server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger tags log records with the chi request id.
func (s *Server) requestLogger(r *http.Request) *slog.Logger {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return s.Logger.With("request_id", id)
	}
	return s.Logger
}

// corsMiddleware allows requests from any origin so browser-based LAN clients
// can reach the bridge without a per-origin allowlist.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqHeaders := r.Header.Get("Access-Control-Request-Headers")
		if reqHeaders == "" {
			reqHeaders = "Authorization, Content-Type, Accept, session_id, originator"
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expectedToken := ""
		if s.Config != nil {
			expectedToken = strings.TrimSpace(s.Config.AccessToken)
		}
		if expectedToken == "" || r.Method == http.MethodOptions || !requiresAccessToken(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := parseBearerAuthToken(header)
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			writeError(w, s.requestLogger(r), http.StatusUnauthorized, serverAccessTokenError)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func parseBearerAuthToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func requiresAccessToken(path string) bool {
	return strings.HasPrefix(path, "/v1/")
}

func (s *Server) verboseMiddleware(next http.Handler) http.Handler {
	if s.Config == nil || !s.Config.Verbose {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requestLogger(r).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"content_type", r.Header.Get("Content-Type"),
			"accept", r.Header.Get("Accept"),
		)
		next.ServeHTTP(w, r)
	})
}
