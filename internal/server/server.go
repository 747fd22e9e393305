// Package server exposes the extraction engine over HTTP for the portal
// front end. Everything here is transport plumbing; the domain rules live
// in extract and compare.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/loanocr/internal/compare"
	"github.com/sells-group/loanocr/internal/extract"
	"github.com/sells-group/loanocr/internal/model"
	"github.com/sells-group/loanocr/internal/store"
)

// Server wires the engine's components behind a chi router.
type Server struct {
	registry   *model.FieldRegistry
	extractor  *extract.Extractor
	comparator *compare.Comparator
	store      store.Store
	limiter    *rate.Limiter
}

// New creates a Server. extractRPS bounds how many extraction calls per
// second the server accepts overall; zero disables the limit.
func New(registry *model.FieldRegistry, ex *extract.Extractor, cmp *compare.Comparator, st store.Store, extractRPS float64) *Server {
	var limiter *rate.Limiter
	if extractRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(extractRPS), int(extractRPS)+1)
	}
	return &Server{
		registry:   registry,
		extractor:  ex,
		comparator: cmp,
		store:      st,
		limiter:    limiter,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/fields", s.handleFields)

	r.Route("/documents/{documentID}", func(r chi.Router) {
		r.With(s.rateLimit).Post("/extract", s.handleExtract)
		r.Get("/ocr/results", s.handleDocumentResults)
		r.Get("/ocr/runs", s.handleDocumentRuns)
	})

	r.Route("/applications/{applicationID}", func(r chi.Router) {
		r.Get("/ocr/results", s.handleApplicationResults)
		r.Get("/ocr/comparison", s.handleComparison)
	})

	return r
}

// requestLogger tags each request with a correlation ID and logs it on
// completion.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "extraction rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
