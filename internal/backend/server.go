// Package backend is a reference implementation of the remote REST API the
// point-of-sale process syncs with.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/vbonduro/washpos/internal/config"
	"github.com/vbonduro/washpos/internal/remote"
)

const tokenTTL = 12 * time.Hour

// Server serves the remote API over fiber.
type Server struct {
	db     *gorm.DB
	cfg    *config.ServerConfig
	app    *fiber.App
	logger *slog.Logger
	now    func() time.Time
}

func New(db *gorm.DB, cfg *config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		db:     db,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "washpos-server",
		UnescapePath:          true,
		DisableStartupMessage: true,
		BodyLimit:             4 << 20,
		ErrorHandler:          s.errorHandler,
	})
	s.routes()
	return s
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) routes() {
	s.app.Use(s.requestLogger)

	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Post("/auth/login", s.handleLogin)

	api.Get("/employees", s.handleListEmployees)
	api.Post("/employees", s.requireAuth, s.handleCreateEmployee)
	api.Put("/employees/:name", s.requireAuth, s.handleRenameEmployee)
	api.Delete("/employees/:name", s.requireAuth, s.handleDeleteEmployee)

	api.Get("/timesheets", s.handleListTimesheets)
	api.Post("/timesheets/clock-in", s.handleClockIn)
	api.Put("/timesheets/clock-out/:id", s.handleClockOut)

	api.Post("/sales/bulk", s.handleBulkSales)
	api.Post("/sync", s.handleSync)
}

// Listen serves on addr until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- s.app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(remote.ErrorResponse{Error: msg})
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	s.logger.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return err
}

// parseBody decodes a JSON body, reporting malformed input as a 400.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}
