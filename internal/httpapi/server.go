// Package httpapi exposes analysis, catalog and report review over HTTP.
// Authentication happens upstream; the caller identity arrives in the
// X-User-ID and X-User-Role headers.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/cultura/internal/analysis"
	"github.com/ppiankov/cultura/internal/logging"
	"github.com/ppiankov/cultura/internal/model"
	"github.com/ppiankov/cultura/internal/review"
)

const (
	// HeaderUserID carries the authenticated user identifier
	HeaderUserID = "X-User-ID"
	// HeaderUserRole carries the user role; "admin" grants review rights
	HeaderUserRole = "X-User-Role"

	maxBodyBytes = 25 << 20
)

// Analyzer runs image analyses
type Analyzer interface {
	Analyze(ctx context.Context, imageBase64 string, useCache bool) (*analysis.Outcome, error)
}

// Catalog reads stored items
type Catalog interface {
	GetItem(ctx context.Context, id string) (*model.CulturalItem, error)
	ListItems(ctx context.Context, category model.Category) ([]*model.CulturalItem, error)
	ListItemsByUser(ctx context.Context, userID string) ([]*model.CulturalItem, error)
}

// Recorder persists analysis logs
type Recorder interface {
	LogAnalysis(ctx context.Context, outcome *analysis.Outcome, itemID string) error
}

// Deps wires the server. Recorder is optional.
type Deps struct {
	Analyzer Analyzer
	Catalog  Catalog
	Reviews  *review.Service
	Recorder Recorder
	Logger   *zap.Logger
}

// Server is the HTTP boundary
type Server struct {
	analyzer Analyzer
	catalog  Catalog
	reviews  *review.Service
	recorder Recorder
	logger   *zap.Logger
}

// NewServer constructs the HTTP boundary
func NewServer(deps Deps) *Server {
	return &Server{
		analyzer: deps.Analyzer,
		catalog:  deps.Catalog,
		reviews:  deps.Reviews,
		recorder: deps.Recorder,
		logger:   logging.OrNop(deps.Logger),
	}
}

// Handler returns the routed handler with logging and panic recovery
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)

	mux.HandleFunc("GET /api/items", s.handleListItems)
	mux.HandleFunc("POST /api/items", s.requireUser(s.handleCreateItem))
	mux.HandleFunc("GET /api/items/mine", s.requireUser(s.handleMyItems))
	mux.HandleFunc("GET /api/items/{id}", s.handleGetItem)

	mux.HandleFunc("GET /api/reports", s.requireUser(s.handleListReports))
	mux.HandleFunc("POST /api/reports", s.requireUser(s.handleSubmitReport))
	mux.HandleFunc("GET /api/reports/mine", s.requireUser(s.handleMyReports))
	mux.HandleFunc("GET /api/reports/{id}", s.requireUser(s.handleGetReport))
	mux.HandleFunc("POST /api/reports/{id}/review", s.requireUser(s.handleReview))

	return s.recoverer(s.accessLog(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.logger.Error("handler panic", zap.Any("panic", v), zap.String("path", r.URL.Path))
				writeJSON(w, http.StatusInternalServerError, envelope{Message: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
