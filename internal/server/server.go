package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"broadoak/internal/api"
	"broadoak/internal/config"
	"broadoak/internal/importer"
)

// Server HTTP服务器
type Server struct {
	router  *gin.Engine
	http    *http.Server
	api     *api.Handler
	backend *Backend
	logger  *zap.Logger
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig, backend *Backend, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	settings, err := importer.NewSettings(cfg)
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.PreviewTTLDuration()
	if err != nil {
		return nil, err
	}

	coordinator := importer.NewCoordinator(backend.Shifts, backend.Journal, settings, logger.Named("importer"))
	handler := api.NewHandler(coordinator, backend.Shifts, backend.Journal, backend.Name, ttl, logger.Named("api"))

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger.Named("http")))

	s := &Server{
		router:  router,
		api:     handler,
		backend: backend,
		logger:  logger,
	}
	s.setupRoutes()
	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	group := s.router.Group("/api")
	{
		s.api.RegisterRoutes(group)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// Handler 返回 http.Handler（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，直到 Shutdown 被调用
func (s *Server) Run(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("server listening", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// Shutdown 等待进行中的请求结束后关闭
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// requestLogger 访问日志
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
