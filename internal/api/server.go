// Package api exposes tasks and logs over HTTP.
//
// Routes:
//
//	GET    /health
//	GET    /tasks
//	GET    /tasks/:id
//	GET    /tasks/:id/status
//	POST   /tasks/:id/run
//	POST   /tasks/:id/cancel
//	POST   /tasks/cancel
//	GET    /logs
//	DELETE /logs
//	GET    /logs/stats
//	GET    /logs/export
//	POST   /logs/import
//
// Log routes accept the filter query parameters level, source, taskId,
// since, until (RFC 3339) and search. level, source and taskId may repeat or
// hold comma-separated values.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dshills/agentcore/internal/agent"
	"github.com/dshills/agentcore/internal/bridge"
	"github.com/dshills/agentcore/internal/logstore"
	"github.com/dshills/agentcore/internal/registry"
	"github.com/dshills/agentcore/internal/status"
)

// Executor is the part of agent.Executor the API drives.
type Executor interface {
	Run(ctx context.Context, task agent.Task, input string, opts agent.RunOptions) (agent.Result, error)
	Cancel(taskID string)
	CancelAll() int
	Active() []string
	LastResult(taskID string) (agent.Result, bool)
	Statuses() status.Reader
}

// Catalog lists the known agents.
type Catalog interface {
	List() []registry.Descriptor
	Descriptor(id string) (registry.Descriptor, bool)
}

// Connection reports the state of an external system.
type Connection interface {
	Name() string
	State() (bridge.State, error)
}

// Option configures a Server.
type Option func(*Server)

// WithConnection reports conn on /health.
func WithConnection(conn Connection) Option {
	return func(s *Server) {
		s.conn = conn
	}
}

// WithClock overrides the time source used for stats.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server serves the HTTP API.
type Server struct {
	exec    Executor
	catalog Catalog
	logs    *logstore.Store
	conn    Connection
	now     func() time.Time

	engine *gin.Engine

	// baseCtx outlives requests; background runs use it.
	baseCtx    context.Context
	cancelBase context.CancelFunc
	runs       sync.WaitGroup

	mu       sync.Mutex
	httpSrv  *http.Server
	shutdown bool
}

// New creates a Server. The gin mode is process-wide and left to the caller.
func New(exec Executor, catalog Catalog, logs *logstore.Store, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		exec:       exec,
		catalog:    catalog,
		logs:       logs,
		now:        time.Now,
		baseCtx:    ctx,
		cancelBase: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger(logs))
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/health", s.getHealth)

	tasks := r.Group("/tasks")
	tasks.GET("", s.listTasks)
	tasks.POST("/cancel", s.cancelAll)
	tasks.GET("/:id", s.getTask)
	tasks.GET("/:id/status", s.getTaskStatus)
	tasks.POST("/:id/run", s.runTask)
	tasks.POST("/:id/cancel", s.cancelTask)

	logs := r.Group("/logs")
	logs.GET("", s.queryLogs)
	logs.DELETE("", s.clearLogs)
	logs.GET("/stats", s.logStats)
	logs.GET("/export", s.exportLogs)
	logs.POST("/import", s.importLogs)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on addr and serves in the background. It returns the bound
// address, which differs from addr when addr asks for port 0.
func (s *Server) Start(addr string) (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return nil, errors.New("api server is shut down")
	}
	if s.httpSrv != nil {
		return nil, errors.New("api server already started")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpSrv = srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logs.Error("API server stopped", logstore.SourceAPI, map[string]any{"error": err.Error()})
		}
	}()
	s.logs.Info(fmt.Sprintf("API listening on %s", ln.Addr()), logstore.SourceAPI, nil)
	return ln.Addr(), nil
}

// Shutdown stops the listener, aborts background runs started through the
// API and waits for them. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	srv := s.httpSrv
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	s.cancelBase()

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// requestLogger records every request at debug level, and failures at error
// level.
func requestLogger(logs *logstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		code := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		details := map[string]any{
			"status":    code,
			"latencyMs": time.Since(start).Milliseconds(),
			"client":    c.ClientIP(),
		}
		level := logstore.LevelDebug
		if code >= http.StatusInternalServerError {
			level = logstore.LevelError
		}
		logs.Append(level, fmt.Sprintf("%s %s %d", c.Request.Method, route, code), logstore.SourceAPI, details, c.Param("id"))
	}
}

// errorStatus maps a domain error to an HTTP status code.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, agent.ErrUnknownTask):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrTaskBusy):
		return http.StatusConflict
	case errors.Is(err, logstore.ErrInvalidFilter),
		errors.Is(err, logstore.ErrUnknownFormat),
		errors.Is(err, logstore.ErrInvalidImport),
		agent.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{
		"error": err.Error(),
	})
}
