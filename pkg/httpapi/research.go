package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentops-dev/substrate/pkg/apperrors"
)

// researchRunRequest is §6.2's POST /research/run body. UserID identifies
// the agent on whose behalf the run executes; planning_node folds that
// agent's standing session context into its prior feedback input via
// pkg/contextassembly when the field is set.
type researchRunRequest struct {
	Query    string `json:"query" binding:"required"`
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id"`
}

func (s *Server) handleResearchRun(c *gin.Context) {
	var req researchRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	threadID, result, err := s.runner.Run(c.Request.Context(), req.ThreadID, req.UserID, req.Query)
	if err != nil {
		s.log.Error("research run failed", "thread_id", threadID, "error", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"thread_id": threadID, "result": result})
}

// researchResumeRequest is §6.2's POST /research/resume body.
type researchResumeRequest struct {
	ThreadID string `json:"thread_id" binding:"required"`
}

func (s *Server) handleResearchResume(c *gin.Context) {
	var req researchResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, found, err := s.runner.Resume(c.Request.Context(), req.ThreadID)
	if err != nil {
		s.log.Error("research resume failed", "thread_id", req.ThreadID, "error", err)
		writeError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"thread_id": req.ThreadID, "result": "no_checkpoint"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"thread_id": req.ThreadID, "result": result})
}

func (s *Server) handleResearchStatus(c *gin.Context) {
	threadID := c.Param("thread_id")

	status, found, err := s.runner.Status(c.Request.Context(), threadID)
	if err != nil {
		s.log.Error("research status failed", "thread_id", threadID, "error", err)
		writeError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no checkpoint for thread " + threadID})
		return
	}

	c.JSON(http.StatusOK, status)
}

// writeError maps apperrors.Kind to an HTTP status, the way the rest of
// the substrate routes failures by taxonomy rather than by error string.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	switch apperrors.Classify(err) {
	case apperrors.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.KindPolicy:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperrors.KindExternal:
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
