package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports ReportServiceInterface
}

func NewReportHandler(reports ReportServiceInterface) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GetReportHandler godoc
// @Summary Trip report
// @Description Totals, per-person and daily figures, category usage and classification. Also runs the budget threshold check.
// @Tags reports
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} aggregation.Report
// @Failure 404 {object} middleware.ErrorResponse
// @Router /trips/{id}/report [get]
// @Security BearerAuth
func (h *ReportHandler) GetReportHandler(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	report, err := h.reports.Report(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ShareReportHandler godoc
// @Summary Shareable plain-text report
// @Tags reports
// @Produce plain
// @Param id path string true "Trip ID"
// @Success 200 {string} string
// @Failure 404 {object} middleware.ErrorResponse
// @Router /trips/{id}/report/share [get]
// @Security BearerAuth
func (h *ReportHandler) ShareReportHandler(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	text, err := h.reports.ShareText(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.String(http.StatusOK, text)
}
