package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/analysis"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
)

// httpExec is the execution context for request handlers: the handler
// goroutine may block, and it is not a scheduler loop.
var httpExec = analysis.ExecContext{AllowSuspend: true, InSchedulerLoop: false}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": WelcomeMessage})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bindStatement decodes and validates the request body, writing the error
// response itself when it returns false.
func (s *Server) bindStatement(c *gin.Context) (model.FinancialInput, bool) {
	var input model.FinancialInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return input, false
	}
	if err := input.Validate(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return input, false
	}
	if input.LiabilitiesExceedAssets() {
		s.logger.Warn("Liabilities exceed assets",
			"user_id", input.UserID,
			"request_id", c.GetString(requestIDKey))
	}
	return input, true
}

func (s *Server) handleCreateReport(c *gin.Context) {
	input, ok := s.bindStatement(c)
	if !ok {
		return
	}

	res, err := s.analyzer.Analyze(c.Request.Context(), input, analysis.Options{Exec: httpExec})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res.Report)
}

func (s *Server) handleStartReport(c *gin.Context) {
	input, ok := s.bindStatement(c)
	if !ok {
		return
	}

	job, err := s.analyzer.Start(c.Request.Context(), s.jobs, input)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func (s *Server) handleGetReport(c *gin.Context) {
	job, err := s.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	default:
		s.logger.Error("Request failed",
			"path", c.FullPath(),
			"request_id", c.GetString(requestIDKey),
			"error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
