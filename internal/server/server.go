// Package server exposes the taskdeck query surface over HTTP and streams
// state updates to viewers over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/colonyops/taskdeck/internal/deck"
)

// Server is the taskdeck web server.
type Server struct {
	svc        *deck.Service
	hub        *Hub
	router     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
	port       int
	log        zerolog.Logger
}

// New builds the router. publicDir, when non-empty, is served as the static
// dashboard root.
func New(svc *deck.Service, hub *Hub, port int, publicDir string, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), securityHeaders())

	s := &Server{
		svc:    svc,
		hub:    hub,
		router: router,
		port:   port,
		log:    log.With().Str("component", "server").Logger(),
	}

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleTasks)
		api.GET("/workspaces", s.handleWorkspaces)
		api.GET("/status", s.handleStatus)
		api.GET("/archived-tasks", s.handleArchivedTasks)
		api.GET("/workspace/:id/progress", s.handleWorkspaceProgress)
	}

	router.GET("/health", s.handleHealth)
	router.GET("/ws", s.handleWS)

	if publicDir != "" {
		router.NoRoute(gin.WrapH(http.FileServer(http.Dir(publicDir))))
	}

	s.httpServer = &http.Server{Handler: router}

	return s
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Next()
	}
}

// Start begins serving. It returns once the listener is accepting or the
// server failed to come up.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("create listener: %w", err)
	}
	s.listener = listener

	s.log.Info().Str("addr", listener.Addr().String()).Msg("starting web server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("web server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the HTTP server and disconnects all viewers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down web server")
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleTasks(c *gin.Context) {
	tasks := s.svc.ListTasks()
	c.JSON(http.StatusOK, gin.H{
		"tasks":       tasks,
		"count":       len(tasks),
		"lastUpdated": time.Now(),
	})
}

func (s *Server) handleWorkspaces(c *gin.Context) {
	workspaces := s.svc.ListWorkspaces()
	c.JSON(http.StatusOK, gin.H{
		"workspaces":  workspaces,
		"count":       len(workspaces),
		"lastUpdated": time.Now(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.GetStatus())
}

func (s *Server) handleArchivedTasks(c *gin.Context) {
	tasks := s.svc.RecentArchived()
	c.JSON(http.StatusOK, gin.H{
		"tasks":       tasks,
		"count":       len(tasks),
		"lastUpdated": time.Now(),
	})
}

// workspaceProgressResponse wraps ProgressDetail with the requested id.
type workspaceProgressResponse struct {
	TaskID string `json:"taskId"`
	deck.ProgressDetail
	LastUpdated time.Time `json:"lastUpdated"`
}

func (s *Server) handleWorkspaceProgress(c *gin.Context) {
	id := c.Param("id")

	detail, ok := s.svc.WorkspaceProgress(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found or no progress record"})
		return
	}

	c.JSON(http.StatusOK, workspaceProgressResponse{
		TaskID:         id,
		ProgressDetail: detail,
		LastUpdated:    time.Now(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Local-only tool, viewers are unauthenticated by design
	CheckOrigin: func(r *http.Request) bool { return true },
}

func marshalInitial(svc *deck.Service) ([]byte, error) {
	return json.Marshal(svc.InitialData())
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	initial, err := marshalInitial(s.svc)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal initial data")
		_ = conn.Close()
		return
	}

	s.hub.Attach(conn, initial)
}
