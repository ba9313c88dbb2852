// Package api exposes the read/control-plane HTTP surface over the pipeline
// and store, generalized from marlonfan-go-stock-collector's server.go: the
// same gin.New()+Logger+Recovery scaffolding, routes regrouped under /sync,
// /funds, and /health instead of /api/stocks.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/marlonfan/mfnav/internal/api/middleware"
	"github.com/marlonfan/mfnav/internal/pipeline"
	"github.com/marlonfan/mfnav/internal/ratelimiter"
	"github.com/marlonfan/mfnav/internal/store"
)

// Server wraps the Gin engine and the dependencies its handlers call.
type Server struct {
	router       *gin.Engine
	db           *store.DB
	orchestrator *pipeline.Orchestrator
	limiter      *ratelimiter.Limiter
}

// New builds a Server with routes registered. The caller is responsible for
// gin.SetMode (main sets it from the log-level config before calling New; test
// helpers leave gin in its default debug mode).
func New(db *store.DB, orchestrator *pipeline.Orchestrator, limiter *ratelimiter.Limiter) *Server {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.RequestID())

	s := &Server{router: router, db: db, orchestrator: orchestrator, limiter: limiter}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.POST("/sync/trigger", s.triggerSync)
	s.router.GET("/sync/status", s.syncStatus)
	s.router.GET("/funds", s.listFunds)
	s.router.GET("/funds/rank", s.rankFunds)
	s.router.GET("/funds/:code", s.getFund)
	s.router.GET("/funds/:code/analytics", s.getFundAnalytics)
	s.router.GET("/health", s.health)
}

// Handler exposes the underlying http.Handler, for tests using httptest and
// for main's explicit http.Server (graceful shutdown needs the latter, not
// gin's own blocking Run helper).
func (s *Server) Handler() *gin.Engine {
	return s.router
}
