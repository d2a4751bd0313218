package web

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vbonduro/washpos/internal/events"
	"github.com/vbonduro/washpos/internal/service"
)

type Server struct {
	service *service.POSService
	hub     *events.Hub
	mux     *http.ServeMux
	logger  *slog.Logger
}

func NewServer(svc *service.POSService, hub *events.Hub, logger *slog.Logger) *Server {
	s := &Server{
		service: svc,
		hub:     hub,
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/connectivity", s.handleConnectivity)
	s.mux.HandleFunc("POST /api/sync", s.handleSync)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)

	s.mux.HandleFunc("POST /api/timeclock/clock-in", s.handleClockIn)
	s.mux.HandleFunc("POST /api/timeclock/clock-out", s.handleClockOut)
	s.mux.HandleFunc("GET /api/timeclock/entries", s.handleListTimeEntries)
	s.mux.HandleFunc("GET /api/timeclock/shifts", s.handleListShifts)
	s.mux.HandleFunc("GET /api/timeclock/history", s.handleServerTimesheets)

	s.mux.HandleFunc("GET /api/employees", s.handleListEmployees)
	s.mux.HandleFunc("POST /admin/employees", s.requireAdmin(s.handleCreateEmployee))
	s.mux.HandleFunc("PUT /admin/employees/{name}", s.requireAdmin(s.handleRenameEmployee))
	s.mux.HandleFunc("DELETE /admin/employees/{name}", s.requireAdmin(s.handleDeleteEmployee))

	s.mux.HandleFunc("GET /api/sales", s.handleListSales)
	s.mux.HandleFunc("POST /api/sales", s.handleAddSale)
	s.mux.HandleFunc("PUT /api/sales/{id}", s.handleEditSale)

	s.mux.HandleFunc("GET /api/inventory", s.handleListInventory)
	s.mux.HandleFunc("POST /api/inventory", s.handleAddItem)
	s.mux.HandleFunc("GET /api/inventory/logs", s.handleListInventoryLogs)
	s.mux.HandleFunc("PUT /api/inventory/{id}", s.handleEditItem)
	s.mux.HandleFunc("DELETE /api/inventory/{id}", s.handleDeleteItem)
	s.mux.HandleFunc("POST /api/inventory/{id}/stock", s.handleUpdateStock)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; connect-src 'self'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack lets the event stream upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
