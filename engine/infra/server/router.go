package server

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/refacekit/leadops/engine/infra/server/appstate"
	"github.com/refacekit/leadops/pkg/logger"
)

func (s *Server) buildRouter(ctx context.Context) error {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), logger.FromContext(ctx)))
		c.Next()
	})
	r.Use(RequestIDMiddleware())
	if s.monitoring.IsInitialized() {
		r.Use(s.monitoring.GinMiddleware())
	}
	r.Use(LoggerMiddleware())
	r.Use(appstate.StateMiddleware(s.state))
	if s.monitoring.IsInitialized() {
		r.GET(s.monitoring.Path(), gin.WrapH(s.monitoring.ExporterHandler()))
	}
	if err := RegisterRoutes(r, s.limiter, s.config.Server.MaxUploadBytes); err != nil {
		return err
	}
	s.router = r
	return nil
}
