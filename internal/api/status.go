package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"broadoak/internal/model"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Backend        string     `json:"backend"`        // 存储后端
	Journal        string     `json:"journal"`        // 导入日志库状态：ok / unavailable
	Today          string     `json:"today"`          // 配置时区下的今天
	Users          int        `json:"users"`          // 用户目录条目数
	OpenPreviews   int        `json:"openPreviews"`   // 未过期的预演结果数
	LastImportID   string     `json:"lastImportId"`   // 最后一次导入
	LastImportTime *time.Time `json:"lastImportTime"` // 最后导入时间
	LastStatus     string     `json:"lastStatus"`     // 最后导入状态
}

// pinger 可探活的日志库（SQLite）
type pinger interface {
	Ping(ctx context.Context) error
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	resp := StatusResponse{
		Backend:      h.backend,
		Today:        h.coordinator.Today().Format(model.DateLayout),
		Journal:      "ok",
		OpenPreviews: h.previews.count(),
	}

	if p, ok := h.history.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("status: journal ping failed", zap.Error(err))
			resp.Journal = "unavailable"
		}
	}

	users, err := h.directory.ListUsers(ctx)
	if err != nil {
		h.logger.Warn("status: list users failed", zap.Error(err))
	}
	resp.Users = len(users)

	logs, err := h.history.ListImportLogs(ctx, 1)
	if err != nil {
		h.logger.Warn("status: list imports failed", zap.Error(err))
	}
	if len(logs) > 0 {
		last := logs[0]
		resp.LastImportID = last.ID
		resp.LastStatus = string(last.Status)
		t := last.StartedAt
		if last.CompletedAt != nil {
			t = *last.CompletedAt
		}
		resp.LastImportTime = &t
	}

	c.JSON(http.StatusOK, resp)
}
