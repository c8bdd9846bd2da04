package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/refacekit/leadops/engine/infra/server/middleware/ratelimit"
	"github.com/refacekit/leadops/engine/infra/server/middleware/size"
	"github.com/refacekit/leadops/engine/infra/server/router"
	"github.com/refacekit/leadops/engine/infra/server/routes"
)

func RegisterRoutes(r *gin.Engine, limiter *ratelimit.Manager, maxUploadBytes int64) error {
	r.GET(routes.Root(), CreateRootHandler())
	r.GET(routes.Health(), CreateHealthHandler(healthPingTimeout))

	ingest := r.Group(routes.Ingest())
	if limiter != nil {
		ingest.Use(limiter.Middleware())
	}
	ingest.Use(size.BodySizeLimiter(maxUploadBytes))
	ingest.POST("/csv", CreateIngestCSVHandler())

	r.NoRoute(func(c *gin.Context) {
		router.RespondProblemWithCode(c, http.StatusNotFound, router.ErrNotFoundCode, "route not found")
	})
	return nil
}
