// Package httpapi serves the catalog over a small read-only JSON API.
//
//	GET /healthz          {"status": "ok"}
//	GET /api/files        {"files": [{"name": "a.txt"}, ...]}
//	GET /api/files/*name  {"name", "content", "sizeBytes", "lastModified"}
//
// Failures are {"error": <message>, "kind": <kind>} with a status derived from
// the error kind.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"dirmcp/internal/catalog"
	"dirmcp/internal/logging"
	"dirmcp/pkg/fileops"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"

	ShutdownTimeout   = 10 * time.Second
	ReadHeaderTimeout = 5 * time.Second
	WriteTimeout      = 60 * time.Second
	IdleTimeout       = 120 * time.Second
)

const requestIDKey = "requestID"

// Server routes HTTP requests to a Catalog.
type Server struct {
	catalog *catalog.Catalog
	logger  *logging.AppLogger
	router  *gin.Engine
}

// New builds the router. The gin mode is left to the caller.
func New(cat *catalog.Catalog, logger *logging.AppLogger) *Server {
	s := &Server{
		catalog: cat,
		logger:  logger.With("transport", "http"),
	}

	r := gin.New()
	r.Use(gin.RecoveryWithWriter(s.logger.Writer()))
	r.Use(requestID())
	r.Use(s.requestLogger())

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	{
		api.GET("/files", s.listFiles)
		api.GET("/files/*name", s.readFile)
	}

	s.router = r
	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: ReadHeaderTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
		ErrorLog:          s.logger.StandardLog(),
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP API")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listFiles(c *gin.Context) {
	s.logger.LogRequest("http", "list", "")

	files, err := s.catalog.ListFiles()
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) readFile(c *gin.Context) {
	// The catch-all parameter keeps its leading slash.
	name := strings.TrimPrefix(c.Param("name"), "/")
	s.logger.LogRequest("http", "read", name)

	content, err := s.catalog.ReadFile(name)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, content)
}

func (s *Server) writeError(c *gin.Context, err error) {
	kind := fileops.KindOf(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "kind", kind, "error", err, "request_id", c.GetString(requestIDKey))
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
		"kind":  kind.String(),
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind fileops.Kind) int {
	switch kind {
	case fileops.KindPathTraversal:
		return http.StatusForbidden
	case fileops.KindNotFound:
		return http.StatusNotFound
	case fileops.KindNotAFile:
		return http.StatusBadRequest
	case fileops.KindDirectoryUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// requestID tags each request with an id, reusing a client-supplied one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString(requestIDKey),
		)
	}
}
