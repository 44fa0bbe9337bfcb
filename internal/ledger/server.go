package ledger

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/zombor/invoice-review/internal/middleware"
)

// Server is the HTTP API for extracting, saving and exporting invoices
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
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("POST /upload-invoice", s.handleUploadInvoice)
	s.mux.HandleFunc("POST /save-invoice", s.handleSaveInvoice)
	s.mux.HandleFunc("GET /invoices", s.handleListInvoices)
	s.mux.HandleFunc("GET /invoice/{id}/download", s.handleDownloadInvoice)
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
