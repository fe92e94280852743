package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	gin.SetMode(s.ginMode)
	s.router = gin.New()

	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.maxBodySizeMiddleware())
	s.router.Use(s.rateLimitMiddleware())

	s.router.GET("/", s.serviceInfo)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/api/stats", s.getStatsData)

	// The client's bearer credential is forwarded to the upstream verbatim,
	// so the API routes carry no auth of their own.
	api := s.router.Group("/v1")
	{
		api.GET("/models", s.listModels)
		api.GET("/models/:model", s.retrieveModel)
		api.POST("/chat/completions", s.chatCompletions)
		api.POST("/responses", s.responsesPassthrough)
	}
}
