package api

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storepulse/internal/export"
	"storepulse/internal/model"
)

// TriggerReport starts a report job and returns its id immediately.
func (h *Handler) TriggerReport(c *gin.Context) {
	reportID, err := h.reports.Trigger(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to trigger report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "an error occurred"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report_id": reportID})
}

// GetReport reports the status of a job and, once complete, where its export lives.
func (h *Handler) GetReport(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	if res.Status != model.ReportComplete {
		c.JSON(http.StatusOK, gin.H{"status": res.Status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": res.Status, "export_location": res.Location})
}

// DownloadReport streams the export of a complete job.
func (h *Handler) DownloadReport(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	if res.Status != model.ReportComplete {
		c.JSON(http.StatusConflict, gin.H{"status": res.Status, "error": "report is not complete"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(res.Location)+`"`)
	c.Data(http.StatusOK, res.ContentType, res.Data)
}

func (h *Handler) lookup(c *gin.Context) (export.Result, bool) {
	reportID := c.Param("report_id")
	res, err := h.exports.Get(c.Request.Context(), reportID)
	if errors.Is(err, export.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return export.Result{}, false
	}
	if err != nil {
		h.logger.Error("failed to load report", zap.String("report_id", reportID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "an error occurred"})
		return export.Result{}, false
	}
	return res, true
}
