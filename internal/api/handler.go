package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"broadoak/internal/importer"
	"broadoak/internal/model"
)

// Directory 用户目录与班次读取
type Directory interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, name string) (model.User, error)
	ListShiftsInRange(ctx context.Context, from, to time.Time) ([]model.Shift, error)
}

// History 导入日志与班次变更日志查询
type History interface {
	ListImportLogs(ctx context.Context, limit int) ([]model.ImportLog, error)
	ListImportFailures(ctx context.Context, importID string) ([]model.Failure, error)
	ListShiftEvents(ctx context.Context, shiftID string, limit int) ([]model.ShiftEvent, error)
}

// Handler API 处理器
type Handler struct {
	coordinator *importer.Coordinator
	directory   Directory
	history     History
	previews    *previewStore
	backend     string
	logger      *zap.Logger
}

// NewHandler 创建 API 处理器
func NewHandler(coordinator *importer.Coordinator, directory Directory, history History, backend string, previewTTL time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		coordinator: coordinator,
		directory:   directory,
		history:     history,
		previews:    newPreviewStore(previewTTL),
		backend:     backend,
		logger:      logger,
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 排班表导入
	router.POST("/import/sheets", h.ListSheets)
	router.POST("/import", h.Import)
	router.POST("/import/previews/:token/commit", h.CommitPreview)
	router.GET("/import/previews/:token/export", h.ExportPreview)

	// 导入历史
	router.GET("/imports", h.ListImports)
	router.GET("/imports/:id/failures", h.ListImportFailures)

	// 用户目录
	router.GET("/users", h.ListUsers)
	router.POST("/users", h.CreateUser)

	// 班次查询
	router.GET("/shifts", h.ListShifts)
	router.GET("/shifts/:id/events", h.ListShiftEvents)
}
