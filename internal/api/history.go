package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"broadoak/internal/model"
	"broadoak/internal/store"
)

// ListImports 导入历史（最新在前）
// GET /api/imports?limit=50
func (h *Handler) ListImports(c *gin.Context) {
	limit := parseIntWithDefault(c.Query("limit"), 50)
	logs, err := h.history.ListImportLogs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []model.ImportLog{}
	}
	c.JSON(http.StatusOK, gin.H{"imports": logs, "total": len(logs)})
}

// ListImportFailures 单次导入的失败列表
// GET /api/imports/:id/failures
func (h *Handler) ListImportFailures(c *gin.Context) {
	failures, err := h.history.ListImportFailures(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrImportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if failures == nil {
		failures = []model.Failure{}
	}
	c.JSON(http.StatusOK, gin.H{"failures": failures, "total": len(failures)})
}

// ListShiftEvents 单个班次的变更日志
// GET /api/shifts/:id/events?limit=50
func (h *Handler) ListShiftEvents(c *gin.Context) {
	limit := parseIntWithDefault(c.Query("limit"), 50)
	events, err := h.history.ListShiftEvents(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if events == nil {
		events = []model.ShiftEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": len(events)})
}

func parseIntWithDefault(v string, d int) int {
	if v == "" {
		return d
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return d
	}
	return i
}
