package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nanoclaw-ops/nanoclaw/pkg/dispatch"
	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"go.uber.org/zap"
)

// NewEngine builds the gin.Engine exposing the runner's HTTP surface:
// GET /health, POST /dispatch (HMAC-authenticated), and the run-management
// endpoints (shared-secret-authenticated).
func (s *Service) NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	r.POST("/dispatch", s.handleDispatch)

	runs := r.Group("/runs")
	runs.Use(s.requireRunnerSecret)
	runs.GET("", s.handleListRuns)
	runs.GET("/:id", s.handleGetRun)
	runs.POST("/:id/cancel", s.handleCancelRun)

	return r
}

func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
}

func (s *Service) requireRunnerSecret(c *gin.Context) {
	if s.cfg.RunnerSecret == "" {
		c.Next()
		return
	}
	if c.GetHeader(dispatch.HeaderRunnerSecret) != s.cfg.RunnerSecret {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid runner secret"})
		return
	}
	c.Next()
}

func (s *Service) handleDispatch(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}

	if s.cfg.DispatchSecret != "" {
		ts := c.GetHeader(dispatch.HeaderSignatureTS)
		sigHeader := c.GetHeader(dispatch.HeaderSignature)
		if ts == "" || sigHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing signature headers"})
			return
		}
		sig, ok := stripSha256Prefix(sigHeader)
		if !ok || !dispatch.Verify(ts, string(body), s.cfg.DispatchSecret, sig) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "signature mismatch"})
			return
		}
	}

	var env dispatch.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid dispatch body: %v", err)})
		return
	}

	results := s.Execute(c.Request.Context(), env.Actions)

	success := true
	for _, r := range results {
		if r.Status != "completed" {
			success = false
			break
		}
	}

	logger.Info("dispatch executed", zap.String("dispatchId", env.DispatchID), zap.Int("actions", len(env.Actions)), zap.Bool("success", success))

	c.JSON(http.StatusOK, dispatch.Response{
		Success:    success,
		DispatchID: env.DispatchID,
		Results:    results,
	})
}

func stripSha256Prefix(s string) (string, bool) {
	const prefix = "sha256="
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return "", false
	}
	return s[len(prefix):], true
}

func (s *Service) handleListRuns(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}

	runs, err := s.runs.List(c.Request.Context(), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Service) handleGetRun(c *gin.Context) {
	id := c.Param("id")
	run, ok, err := s.runs.Get(c.Request.Context(), id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Service) handleCancelRun(c *gin.Context) {
	id := c.Param("id")
	if _, ok, err := s.runs.Get(c.Request.Context(), id); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	} else if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	if err := s.runs.Cancel(c.Request.Context(), id); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelRequested": true})
}
