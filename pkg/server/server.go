package server

import (
	"net/http"

	"github.com/duynguyendang/routescan/internal/manager"
	"github.com/gin-gonic/gin"
)

// Server holds the state for the REST API server.
type Server struct {
	manager     *manager.ScanManager
	defaultRoot string
	router      *gin.Engine
}

// NewServer creates a new Server instance. defaultRoot is used when a
// request does not name a workspace.
func NewServer(mgr *manager.ScanManager, defaultRoot string) *Server {
	r := gin.Default()
	s := &Server{
		manager:     mgr,
		defaultRoot: defaultRoot,
		router:      r,
	}
	s.setupRoutes()
	return s
}

// Run starts the server on the specified address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router, e.g. for http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/v1/workspaces", s.handleWorkspaces)
	s.router.POST("/v1/scan", s.handleScan)
	s.router.GET("/v1/routes", s.handleRoutes)
	s.router.GET("/v1/routes/files", s.handleFiles)
	s.router.GET("/v1/routes/diagram", s.handleDiagram)
	s.router.GET("/v1/routes/graph", s.handleGraph)
	s.router.GET("/v1/routes/search", s.handleSearch)
	s.router.GET("/v1/source", s.handleSource)
}

// Health check
func (s *Server) healthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}
