// Package server exposes the market desk over REST and pushes snapshots over websockets.
package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rewired-gh/quickodds/internal/config"
	"github.com/rewired-gh/quickodds/internal/logger"
	"github.com/rewired-gh/quickodds/internal/models"
	"github.com/rewired-gh/quickodds/internal/session"
)

// Desk is the market desk the API drives.
type Desk interface {
	Markets(ctx context.Context) ([]session.Listing, error)
	Snapshot() (models.Snapshot, bool)
	Open(ctx context.Context, marketID string) (*session.Session, error)
	Close() error
	Subscribe(fn func(models.Snapshot)) func()
	OnExpire(fn func(models.Expiry))
}

// Server serves the REST API and the websocket feed.
type Server struct {
	cfg    config.ServerConfig
	desk   Desk
	engine *gin.Engine
	hub    *Hub
}

// New builds the router and attaches the hub to the desk's updates.
func New(cfg config.ServerConfig, desk Desk) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		desk:   desk,
		engine: gin.New(),
		hub:    newHub(),
	}
	s.engine.Use(gin.Recovery(), requestLogger(), s.cors())
	s.setupRoutes()

	desk.Subscribe(func(snap models.Snapshot) { s.hub.Publish(snapshotMessage(snap)) })
	desk.OnExpire(func(e models.Expiry) { s.hub.Publish(expiryMessage(e)) })
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/markets", s.getMarkets)
	api.GET("/session", s.getSession)
	api.POST("/session", s.openSession)
	api.DELETE("/session", s.closeSession)

	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.run(hubCtx)

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func (s *Server) getHealth(c *gin.Context) {
	_, open := s.desk.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"connections":  s.hub.Connections(),
		"session_open": open,
	})
}

func (s *Server) getMarkets(c *gin.Context) {
	listings, err := s.desk.Markets(c.Request.Context())
	if err != nil {
		logger.Warn("Failed to list markets: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, listings)
}

func (s *Server) getSession(c *gin.Context) {
	snap, open := s.desk.Snapshot()
	if !open {
		c.JSON(http.StatusNotFound, gin.H{"error": session.ErrNoSession.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

type openRequest struct {
	MarketID string `json:"market_id" binding:"required"`
}

func (s *Server) openSession(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := s.desk.Open(c.Request.Context(), req.MarketID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrUnknownAsset) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (s *Server) closeSession(c *gin.Context) {
	if err := s.desk.Close(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	s.hub.Publish(closedMessage())
	c.Status(http.StatusNoContent)
}

func (s *Server) allowedOrigin(origin string) bool {
	return origin == "" || slices.Contains(s.cfg.AllowedOrigins, "*") ||
		slices.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && s.allowedOrigin(origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}
