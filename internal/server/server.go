// Package server exposes the task tracker over a JSON HTTP API.
//
// Reads answer from an engine snapshot. Mutations are fire-and-forget: the
// handler queues the command and answers 202 Accepted; the outcome arrives
// later as a notification, readable from GET /api/notifications.
package server

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/todo/internal/engine"
	"github.com/roach88/todo/internal/notify"
	"github.com/roach88/todo/internal/session"
	"github.com/roach88/todo/internal/task"
	"github.com/roach88/todo/internal/view"
)

// Server is the HTTP API in front of an engine.
type Server struct {
	engine      *engine.Engine
	recorder    *notify.Recorder
	session     *session.Manual
	categories  []string
	defaultSort view.SortKey
	logger      *slog.Logger
	router      *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithCategories sets the accepted categories. Default: task.DefaultCategories.
func WithCategories(c []string) Option {
	return func(s *Server) { s.categories = c }
}

// WithDefaultSort sets the sort used when a list request names none.
func WithDefaultSort(k view.SortKey) Option {
	return func(s *Server) { s.defaultSort = k }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a server. eng must be running and following sess;
// rec must be one of its notifiers.
func New(eng *engine.Engine, rec *notify.Recorder, sess *session.Manual, opts ...Option) *Server {
	s := &Server{
		engine:      eng,
		recorder:    rec,
		session:     sess,
		categories:  task.DefaultCategories,
		defaultSort: view.SortDueAt,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))
	s.router = router

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.PATCH("/tasks/:id", s.handleEditTask)
		api.POST("/tasks/:id/toggle", s.handleToggleTask)
		api.POST("/tasks/:id/archive", s.handleArchiveTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)

		api.GET("/archived", s.handleListArchived)
		api.DELETE("/archived/:id", s.handleDeleteArchived)

		api.GET("/session", s.handleGetSession)
		api.PUT("/session", s.handleSignIn)
		api.DELETE("/session", s.handleSignOut)

		api.GET("/notifications", s.handleNotifications)
		api.GET("/categories", s.handleCategories)
	}

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
