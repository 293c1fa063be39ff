// Package api exposes the answer engine over a JSON HTTP API. Handlers
// depend on narrow consumer-defined interfaces so the engine's concrete
// stores stay swappable in tests.
package api

import (
	"errors"
	"net/http"

	"github.com/mirutec/sage/internal/log"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger    log.Logger
	Chat      ChatService        // Required
	Feedback  FeedbackService    // Required
	Resolver  ProvenanceResolver // Optional: nil disables weight attribution
	Ingestor  DatasetService     // Required
	Knowledge KnowledgeInfo      // Required
	Search    SearchService      // Required
	Archive   Pinger             // Optional: nil skips archive check in /ready

	CORSOrigins    []string
	TrustProxy     bool    // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateLimitRPS   float64 // Tokens refilled per second per IP (0 = default 10)
	RateLimitBurst int     // Burst size per IP (0 = default 20)
	MaxUploadBytes int64   // Dataset payload cap (0 = default 5 MiB)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Chat == nil {
		return nil, errors.New("chat service is required")
	}
	if cfg.Feedback == nil {
		return nil, errors.New("feedback service is required")
	}
	if cfg.Ingestor == nil || cfg.Knowledge == nil {
		return nil, errors.New("dataset services are required")
	}
	if cfg.Search == nil {
		return nil, errors.New("search service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}

	ch := &chatHandler{chat: cfg.Chat, logger: logger}
	fh := &feedbackHandler{store: cfg.Feedback, provenance: cfg.Resolver, logger: logger}
	dh := &datasetHandler{ingestor: cfg.Ingestor, info: cfg.Knowledge, maxBody: maxUpload, logger: logger}
	sh := &searchHandler{retriever: cfg.Search, logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/chat", ch.send)

	mux.HandleFunc("POST /api/v1/feedback", fh.submit)
	mux.HandleFunc("POST /api/v1/feedback/session", fh.submitSession)
	mux.HandleFunc("GET /api/v1/feedback/stats", fh.stats)

	mux.HandleFunc("POST /api/v1/datasets", dh.upload)
	mux.HandleFunc("GET /api/v1/datasets", dh.list)

	mux.HandleFunc("GET /api/v1/search", sh.search)

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}
	rl := newRateLimiter(rps, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux keeps health probes outside the middleware stack so
	// rate limiting never starves the orchestrator.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Archive, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
