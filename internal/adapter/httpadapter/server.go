package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/couchcryptid/mdf-dashboard/internal/dashboard"
	"github.com/couchcryptid/mdf-dashboard/internal/domain"
	"github.com/couchcryptid/mdf-dashboard/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NoMatchText is shown when nobody died at exactly the requested age.
const NoMatchText = "No one in the records died at exactly your age today. Try another date."

// Server exposes the dashboard API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	provider   *dashboard.Provider
	metrics    *observability.Metrics
	logger     *slog.Logger
	newRand    func() *rand.Rand
}

// NewServer creates an HTTP server with the API routes and /healthz,
// /readyz, and /metrics.
func NewServer(addr string, provider *dashboard.Provider, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		provider: provider,
		metrics:  metrics,
		logger:   logger,
		newRand:  seededRand,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(provider))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/summary", s.withBundle(s.handleSummary))
	mux.HandleFunc("GET /api/views/{view}", s.withBundle(s.handleView))
	mux.HandleFunc("GET /api/figures/{name}", s.withBundle(s.handleFigure))
	mux.HandleFunc("GET /api/lookup", s.withBundle(s.handleLookup))

	return s
}

// seededRand returns a random source seeded independently of every other
// request.
func seededRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type bundleHandler func(w http.ResponseWriter, r *http.Request, b *dashboard.Bundle)

// withBundle answers 503 until the bundle is loaded.
func (s *Server) withBundle(h bundleHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := s.provider.Bundle()
		if b == nil {
			writeError(w, http.StatusServiceUnavailable, dashboard.ErrNotLoaded.Error())
			return
		}
		h(w, r, b)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request, b *dashboard.Bundle) {
	sharedobs.WriteJSON(w, http.StatusOK, b.Stats())
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request, b *dashboard.Bundle) {
	switch view := r.PathValue("view"); view {
	case "weekly":
		sharedobs.WriteJSON(w, http.StatusOK, b.Weekly())
	case "regions":
		sharedobs.WriteJSON(w, http.StatusOK, b.Regions())
	case "places":
		sharedobs.WriteJSON(w, http.StatusOK, b.Places())
	default:
		writeError(w, http.StatusNotFound, "unknown view "+view)
	}
}

func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request, b *dashboard.Bundle) {
	name := r.PathValue("name")
	raw, ok := b.Figure(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown figure "+name)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		s.logger.Debug("write figure", "figure", name, "error", err)
	}
}

type lookupResponse struct {
	Text string `json:"text"`
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request, b *dashboard.Bundle) {
	start := time.Now()
	defer func() { s.metrics.LookupDuration.Observe(time.Since(start).Seconds()) }()

	var birth *time.Time
	if v := r.URL.Query().Get("birth_date"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			s.metrics.LookupRequests.WithLabelValues("invalid").Inc()
			writeError(w, http.StatusBadRequest, "birth_date must be YYYY-MM-DD")
			return
		}
		birth = &t
	}

	match, err := b.Lookup(birth, s.newRand())
	switch {
	case err == nil:
		s.metrics.LookupRequests.WithLabelValues("match").Inc()
		sharedobs.WriteJSON(w, http.StatusOK, lookupResponse{Text: domain.FormatSentence(match)})
	case errors.Is(err, domain.ErrNoBirthDate):
		s.metrics.LookupRequests.WithLabelValues("no_date").Inc()
		sharedobs.WriteJSON(w, http.StatusOK, lookupResponse{})
	case errors.Is(err, domain.ErrNoMatch):
		s.metrics.LookupRequests.WithLabelValues("no_match").Inc()
		sharedobs.WriteJSON(w, http.StatusOK, lookupResponse{Text: NoMatchText})
	case errors.Is(err, domain.ErrInvalidBirthDate):
		s.metrics.LookupRequests.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
