// Package api exposes the HTTP interface of the lookup service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/binyaminyblatt/graphicaudio-scraper/internal/catalog"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/config"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/lookup"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/metrics"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/search"
)

// RecordSource supplies the record-set snapshot queries run against.
type RecordSource interface {
	Get(ctx context.Context) ([]catalog.Record, error)
	Refresh(ctx context.Context) ([]catalog.Record, error)
	Invalidate()
}

// Server wires HTTP handlers to the record cache and search engine.
type Server struct {
	router chi.Router
	cache  RecordSource
	covers *CoverCache
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(cache RecordSource, covers *CoverCache, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		cache:  cache,
		covers: covers,
		cfg:    cfg,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/asin/{asin}", func(r chi.Router) {
		r.Get("/", s.lookupASIN)
		r.Get("/cover", s.coverByField(catalog.FieldASIN, "asin", SanitizeASIN))
	})
	r.Route("/isbn/{isbn}", func(r chi.Router) {
		r.Get("/", s.lookupISBN)
		r.Get("/cover", s.coverByField(catalog.FieldISBN, "isbn", SanitizeISBN))
	})
	r.Get("/series/{series}", s.lookupSeries)
	r.Get("/search", s.freeTextSearch)
	r.Get("/provider/search", s.providerSearch)
	r.Post("/refresh", s.refresh)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// records loads the current snapshot, translating an unavailable source
// into a 503.
func (s *Server) records(w http.ResponseWriter, r *http.Request) ([]catalog.Record, bool) {
	records, err := s.cache.Get(r.Context())
	if err != nil {
		if errors.Is(err, lookup.ErrDataUnavailable) {
			s.writeError(w, http.StatusServiceUnavailable, "data unavailable")
		} else {
			s.writeError(w, http.StatusInternalServerError, "failed to load records")
		}
		return nil, false
	}
	return records, true
}

func (s *Server) lookupASIN(w http.ResponseWriter, r *http.Request) {
	s.lookupByField(w, r, catalog.FieldASIN, "asin", SanitizeASIN(chi.URLParam(r, "asin")))
}

func (s *Server) lookupISBN(w http.ResponseWriter, r *http.Request) {
	s.lookupByField(w, r, catalog.FieldISBN, "isbn", SanitizeISBN(chi.URLParam(r, "isbn")))
}

// lookupByField answers the exact-first endpoints: a single record for an
// exact hit, a ranked array for fuzzy hits, 404 otherwise.
func (s *Server) lookupByField(w http.ResponseWriter, r *http.Request, field catalog.Field, kind, value string) {
	if value == "" {
		s.writeError(w, http.StatusBadRequest, kind+" is required")
		return
	}
	records, ok := s.records(w, r)
	if !ok {
		return
	}

	exact, fuzzy := search.FindByField(records, field, value, s.threshold())
	switch {
	case exact != nil:
		metrics.ObserveLookup(kind, "exact")
		s.writeJSON(w, http.StatusOK, exact)
	case len(fuzzy) > 0:
		metrics.ObserveLookup(kind, "fuzzy")
		s.writeJSON(w, http.StatusOK, fuzzy)
	default:
		metrics.ObserveLookup(kind, "miss")
		s.writeError(w, http.StatusNotFound, kind+" not found")
	}
}

// lookupSeries is fuzzy-only: every episode of a close-enough series comes
// back, ranked by confidence.
func (s *Server) lookupSeries(w http.ResponseWriter, r *http.Request) {
	name := SanitizeSeries(chi.URLParam(r, "series"))
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "series is required")
		return
	}
	records, ok := s.records(w, r)
	if !ok {
		return
	}

	matches := search.FindFuzzy(records, catalog.FieldSeries, name, s.threshold())
	if len(matches) == 0 {
		metrics.ObserveLookup("series", "miss")
		s.writeError(w, http.StatusNotFound, "series not found")
		return
	}
	metrics.ObserveLookup("series", "fuzzy")
	s.writeJSON(w, http.StatusOK, matches)
}

func (s *Server) freeTextSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		query = r.URL.Query().Get("query")
	}
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	records, ok := s.records(w, r)
	if !ok {
		return
	}

	matches := search.Search(records, query, nil, s.threshold())
	if len(matches) == 0 {
		metrics.ObserveLookup("search", "miss")
		s.writeError(w, http.StatusNotFound, "no results")
		return
	}
	metrics.ObserveLookup("search", "fuzzy")
	s.writeJSON(w, http.StatusOK, matches)
}

// providerSearch serves the metadata-provider protocol. The matches array
// is always present; no results is an empty array, not an error.
func (s *Server) providerSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	records, ok := s.records(w, r)
	if !ok {
		return
	}

	matches := search.Search(records, query, nil, s.threshold())
	if len(matches) == 0 {
		metrics.ObserveLookup("provider", "miss")
	} else {
		metrics.ObserveLookup("provider", "fuzzy")
	}
	s.writeJSON(w, http.StatusOK, toProviderResponse(matches, s.cfg.Lookup.PublicBaseURL))
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	records, err := s.cache.Refresh(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "data unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"records": len(records)})
}

// coverByField serves the cached cover image for the record matching the
// URL parameter.
func (s *Server) coverByField(field catalog.Field, param string, sanitize func(string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value := sanitize(chi.URLParam(r, param))
		if value == "" {
			s.writeError(w, http.StatusBadRequest, param+" is required")
			return
		}
		records, ok := s.records(w, r)
		if !ok {
			return
		}

		rec, fuzzy := search.FindByField(records, field, value, s.threshold())
		if rec == nil && len(fuzzy) > 0 {
			rec = &fuzzy[0].Record
		}
		if rec == nil {
			s.writeError(w, http.StatusNotFound, param+" not found")
			return
		}
		if rec.Cover == nil || *rec.Cover == "" {
			s.writeError(w, http.StatusNotFound, "no cover available for this entry")
			return
		}

		path, err := s.covers.Path(r.Context(), *rec.Cover)
		if err != nil {
			s.logger.Error("Cover fetch failed", zap.String("url", *rec.Cover), zap.Error(err))
			s.writeError(w, http.StatusBadGateway, "cover unavailable")
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		http.ServeFile(w, r, path)
	}
}

func (s *Server) threshold() float64 {
	if s.cfg.Lookup.Threshold > 0 {
		return s.cfg.Lookup.Threshold
	}
	return search.DefaultThreshold
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("Request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
