package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/zombor/invoice-review/internal/middleware"
)

// Server serves the upload, review and history screens
type Server struct {
	service *Service
	metrics *middleware.Metrics
	mux     *http.ServeMux
	handler http.Handler
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, metrics *middleware.Metrics) *Server {
	return NewServerWithMux(service, metrics, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, metrics *middleware.Metrics, mux *http.ServeMux) *Server {
	s := &Server{
		service: service,
		metrics: metrics,
		mux:     mux,
	}
	s.registerRoutes()

	middlewares := []func(http.Handler) http.Handler{middleware.RequestID, middleware.AccessLog}
	if metrics != nil {
		middlewares = append(middlewares, metrics.Middleware)
	}
	s.handler = middleware.Chain(mux, middlewares...)
	return s
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(getStaticFS()))))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Draft API
	s.mux.HandleFunc("GET /api/draft", s.handleGetDraft)
	s.mux.HandleFunc("PATCH /api/draft", s.handleEditField)
	s.mux.HandleFunc("PUT /api/draft/tax-rate", s.handleSetTaxRate)
	s.mux.HandleFunc("POST /api/draft/items", s.handleAddItem)
	s.mux.HandleFunc("PATCH /api/draft/items/{index}", s.handleEditItem)
	s.mux.HandleFunc("DELETE /api/draft/items/{index}", s.handleRemoveItem)
	s.mux.HandleFunc("POST /api/draft/save", s.handleSave)

	// Screens
	s.mux.HandleFunc("GET /history/{id}/download", s.handleDownload)
	s.mux.HandleFunc("GET /history", s.handleHistory)
	s.mux.HandleFunc("GET /review", s.handleReview)
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
