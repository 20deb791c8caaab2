// Package server assembles the daemon: session manager, event hub,
// HTTP and WebSocket surfaces, middleware, and metrics.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/termstack/termd/internal/api/middleware"
	"github.com/termstack/termd/internal/api/rest"
	"github.com/termstack/termd/internal/api/ws"
	"github.com/termstack/termd/internal/infrastructure/config"
	"github.com/termstack/termd/internal/infrastructure/logging"
	"github.com/termstack/termd/internal/infrastructure/monitoring"
	"github.com/termstack/termd/internal/session"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	mgr     *session.Manager
	hub     *ws.Hub
	httpSrv *http.Server
}

// New assembles a daemon from configuration.
func New(cfg *config.Config, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	metrics := monitoring.NewMetrics()
	mgr := session.NewManager(cfg.Terminal, logger, metrics)
	hub := ws.NewHub(mgr, cfg.Terminal.ScrollbackSize, logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	router.Use(monitoring.Middleware(metrics))

	rest.NewHandler(mgr, logger).Register(router)
	wsHandler := ws.NewHandler(mgr, hub, logger, metrics)
	router.GET("/sessions/:id/stream", wsHandler.Attach)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{
		cfg:     cfg,
		logger:  logger.Named("server"),
		metrics: metrics,
		mgr:     mgr,
		hub:     hub,
		httpSrv: &http.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
			Handler: router,
		},
	}
}

// Manager exposes the session manager, e.g. for spawning the startup
// session.
func (s *Server) Manager() *session.Manager { return s.mgr }

// Run starts the event hub and serves HTTP until Shutdown.
func (s *Server) Run() error {
	go s.hub.Run()
	s.logger.Info("listening", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then kills every session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpSrv.Shutdown(ctx)
	s.mgr.CloseAll()
	return err
}
