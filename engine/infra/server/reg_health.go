package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/refacekit/leadops/engine/infra/server/appstate"
	"github.com/refacekit/leadops/engine/infra/server/router"
	"github.com/refacekit/leadops/engine/infra/server/routes"
	"github.com/refacekit/leadops/pkg/logger"
)

const (
	componentOK   = "ok"
	componentDead = "dead"
)

// CreateRootHandler describes the service and its endpoints.
func CreateRootHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := appstate.GetState(c.Request.Context())
		if err != nil {
			router.RespondProblemWithCode(c, http.StatusInternalServerError, router.ErrInternalCode, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "RefaceKit Ops API",
			"version": state.Version,
			"endpoints": gin.H{
				"health":     routes.Health(),
				"ingest_csv": routes.IngestCSV(),
			},
		})
	}
}

// CreateHealthHandler reports API liveness and Redis reachability. It always
// answers 200 since the API process itself is up; callers read the redis
// field to decide whether uploads will be accepted.
func CreateHealthHandler(pingTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		state, err := appstate.GetState(ctx)
		if err != nil {
			router.RespondProblemWithCode(c, http.StatusInternalServerError, router.ErrInternalCode, err.Error())
			return
		}
		response := gin.H{
			"api":       componentOK,
			"redis":     componentDead,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if redisHealthy(ctx, state, pingTimeout) {
			response["redis"] = componentOK
			if depth, err := state.Queue.Len(ctx); err == nil {
				response["queue_depth"] = depth
			}
		}
		c.JSON(http.StatusOK, response)
	}
}

func redisHealthy(ctx context.Context, state *appstate.State, timeout time.Duration) bool {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := state.Redis.Ping(ctx); err != nil {
		logger.FromContext(ctx).Warn("Redis health check failed", "error", err)
		return false
	}
	return true
}
