package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refacekit/leadops/pkg/logger"
)

func init() {
	logger.InitForTests()
}

func TestNormalizeProblem(t *testing.T) {
	t.Run("Should fill defaults", func(t *testing.T) {
		p := NormalizeProblem(nil)
		assert.Equal(t, http.StatusInternalServerError, p.Status)
		assert.Equal(t, "Internal Server Error", p.Title)
		assert.Equal(t, "about:blank", p.Type)
	})

	t.Run("Should keep provided values", func(t *testing.T) {
		p := NormalizeProblem(&Problem{Status: http.StatusBadRequest, Title: "Nope"})
		assert.Equal(t, "Nope", p.Title)
	})
}

func TestBuildProblemBody(t *testing.T) {
	t.Run("Should not let extras override reserved keys", func(t *testing.T) {
		body := BuildProblemBody(NormalizeProblem(&Problem{
			Status: http.StatusBadRequest,
			Detail: "bad",
			Extras: map[string]any{"code": "x", "status": 999, "rows": 3},
		}))
		assert.Equal(t, http.StatusBadRequest, body["status"])
		assert.Equal(t, "x", body["code"])
		assert.Equal(t, "bad", body["details"])
		assert.Equal(t, 3, body["rows"])
	})
}

func TestRespondProblemWithCode(t *testing.T) {
	t.Run("Should write a problem envelope and abort", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		r := gin.New()
		reached := false
		r.GET("/x", func(c *gin.Context) {
			RespondProblemWithCode(c, http.StatusServiceUnavailable, IngestErrQueueDownCode, "queue is down")
		}, func(*gin.Context) { reached = true })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		var doc ProblemDocument
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
		assert.Equal(t, ProblemDocument{
			Status:  http.StatusServiceUnavailable,
			Error:   "Service Unavailable",
			Details: "queue is down",
			Code:    IngestErrQueueDownCode,
			Type:    "about:blank",
		}, doc)
		assert.False(t, reached)
	})
}
