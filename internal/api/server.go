package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/meetwise/meetwise/internal/calendar"
	"github.com/meetwise/meetwise/internal/config"
	"github.com/meetwise/meetwise/internal/extract"
	"github.com/meetwise/meetwise/internal/metrics"
)

// Server exposes the assistant over HTTP.
type Server struct {
	app       *fiber.App
	config    *config.Config
	extractor *extract.Extractor
	service   *calendar.Service
	metrics   *metrics.Metrics
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// New creates the API server.
func New(cfg *config.Config, extractor *extract.Extractor, service *calendar.Service, m *metrics.Metrics, logger *zap.Logger) *Server {
	loc, err := cfg.Location()
	if err != nil {
		logger.Warn("Invalid timezone, falling back to local", zap.String("tz", cfg.Assistant.Timezone), zap.Error(err))
		loc = time.Local
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:       app,
		config:    cfg,
		extractor: extractor,
		service:   service,
		metrics:   m,
		logger:    logger,
		location:  loc,
		now:       time.Now,
	}

	s.setupRoutes()
	return s
}

// Start starts the server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}
