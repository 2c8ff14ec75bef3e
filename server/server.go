// Package server exposes manifolds over HTTP as a tool-call endpoint.
//
//	POST /tool     execute a tool call
//	GET  /schema   tool schema for agent registration
//	GET  /health   liveness check
//	GET  /metrics  Prometheus exposition
//
// Each create_manifold call opens a session addressed by the manifold's ID.
// Calls on one session are serialized; distinct sessions run concurrently.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/njchilds90/spacetime/library"
	"github.com/njchilds90/spacetime/tensor"
)

const maxBodyBytes = 1 << 20

var (
	ErrUnknownTool     = errors.New("unknown tool")
	ErrUnknownSession  = errors.New("unknown manifold id")
	ErrTooManySessions = errors.New("too many manifolds")
)

// ToolRequest is the body of POST /tool.
type ToolRequest struct {
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ToolResponse carries a result or an error. String and LaTeX render
// single-expression results.
type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type session struct {
	mu      sync.Mutex
	m       *tensor.Manifold
	created time.Time
}

// Server holds the manifold sessions and the catalog they are built from.
type Server struct {
	mu       sync.RWMutex
	sessions map[string]*session

	catalog  *library.Catalog
	units    library.Units
	names    tensor.Names
	max      int
	logger   *slog.Logger
	metrics  http.Handler
	ginDebug bool
}

// Option configures a Server.
type Option func(*Server)

func WithCatalog(c *library.Catalog) Option { return func(s *Server) { s.catalog = c } }
func WithUnits(u library.Units) Option      { return func(s *Server) { s.units = u } }
func WithNames(n tensor.Names) Option       { return func(s *Server) { s.names = n } }
func WithMaxManifolds(n int) Option         { return func(s *Server) { s.max = n } }
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}
func WithDebug(debug bool) Option { return func(s *Server) { s.ginDebug = debug } }

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server over the built-in catalog in natural units.
func New(opts ...Option) *Server {
	s := &Server{
		sessions: make(map[string]*session),
		units:    library.Natural(),
		names:    tensor.DefaultNames(),
		max:      64,
		logger:   slog.Default(),
		metrics:  http.NotFoundHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = library.Builtin()
	}
	return s
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	if s.ginDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, rec interface{}) {
		s.logger.Error("panic in handler", "path", c.Request.URL.Path, "panic", fmt.Sprint(rec))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}))
	router.Use(otelgin.Middleware("sxl-server"))
	if s.ginDebug {
		router.Use(gin.Logger())
	}

	router.POST("/tool", s.handleTool)
	router.GET("/schema", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(ToolSpec()))
	})
	router.GET("/health", func(c *gin.Context) {
		s.mu.RLock()
		n := len(s.sessions)
		s.mu.RUnlock()
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"time":      time.Now().UTC().Format(time.RFC3339),
			"manifolds": n,
		})
	})
	router.GET("/metrics", gin.WrapH(s.metrics))
	return router
}

func (s *Server) handleTool(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ToolResponse{Error: err.Error()})
		return
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var req ToolRequest
	if err := dec.Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, ToolResponse{Error: err.Error()})
		return
	}
	if dec.More() {
		c.JSON(http.StatusBadRequest, ToolResponse{Error: "invalid JSON: trailing data"})
		return
	}
	c.JSON(http.StatusOK, s.Handle(c.Request.Context(), req))
}

// ============================================================
// Sessions
// ============================================================

func (s *Server) open(m *tensor.Manifold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= s.max {
		return fmt.Errorf("%w: limit %d", ErrTooManySessions, s.max)
	}
	s.sessions[m.ID()] = &session{m: m, created: time.Now()}
	return nil
}

func (s *Server) drop(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	delete(s.sessions, id)
	sess.mu.Lock()
	sess.m.Close()
	sess.mu.Unlock()
	return nil
}

// with runs fn holding the session's lock.
func (s *Server) with(id string, fn func(m *tensor.Manifold) error) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess.m)
}
