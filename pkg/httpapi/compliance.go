package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const complianceDateLayout = "2006-01-02"

func parseDateRange(c *gin.Context) (from, to time.Time, ok bool) {
	fromStr := c.Query("from")
	toStr := c.Query("to")

	from, err := time.Parse(complianceDateLayout, fromStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date, expected YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	to, err = time.Parse(complianceDateLayout, toStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date, expected YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	return from, to.Add(24 * time.Hour), true
}

func (s *Server) handleComplianceReport(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}

	report, err := s.reporter.Generate(c.Request.Context(), from, to)
	if err != nil {
		s.log.Error("compliance report failed", "error", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) handleComplianceExport(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}

	packets, err := s.reporter.Export(c.Request.Context(), from, to)
	if err != nil {
		s.log.Error("compliance export failed", "error", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, packets)
}
