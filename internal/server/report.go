package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetMetricsReport(c *gin.Context) {
	report, err := s.reportSvc.GenerateMetricsReport(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("metrics-report-%s.pdf", report.GeneratedAt.UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, report.ContentType, report.Data)
}
