package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"broadoak/internal/exporter"
	"broadoak/internal/importer"
)

// CommitPreview 提交保留的试运行结果，无需重新上传
// POST /api/import/previews/:token/commit
func (h *Handler) CommitPreview(c *gin.Context) {
	token := c.Param("token")
	report, err := h.previews.take(token)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	err = h.coordinator.Commit(c.Request.Context(), report)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, ImportResult{Report: report})
	case errors.Is(err, importer.ErrAlreadyCommitted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "report": report})
	case errors.Is(err, importer.ErrCommitFailed):
		// 结果保留，操作员可在问题解决后再次提交
		expiresAt := h.previews.restore(token, report)
		h.logger.Warn("preview commit failed", zap.String("import_id", report.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error": err.Error(),
			"result": ImportResult{
				Report:       report,
				PreviewToken: token,
				ExpiresAt:    &expiresAt,
			},
		})
	default:
		h.previews.restore(token, report)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// ExportPreview 将预演结果导出为 Excel
// GET /api/import/previews/:token/export
func (h *Handler) ExportPreview(c *gin.Context) {
	token := c.Param("token")
	report, err := h.previews.get(token)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	file, err := exporter.ExportPreview(report, func(ev exporter.ProgressEvent) {
		h.logger.Debug("preview export progress",
			zap.String("import_id", report.ID),
			zap.String("token", token),
			zap.Int("percent", ev.Percent),
			zap.String("stage", ev.Stage))
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed: " + err.Error()})
		return
	}
	defer file.Close()

	buf, err := file.WriteToBuffer()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write workbook"})
		return
	}

	filename := fmt.Sprintf("import-preview-%s.xlsx", report.Today.Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
