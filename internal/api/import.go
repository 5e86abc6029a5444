package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"broadoak/internal/importer"
	"broadoak/internal/workbook"
)

// maxUploadBytes 单个排班表上传的大小上限
const maxUploadBytes = 32 << 20

// ImportResult 导入完成事件携带的数据
type ImportResult struct {
	Report       *importer.Report `json:"report"`
	PreviewToken string           `json:"previewToken,omitempty"` // 试运行或提交失败时可用于提交
	ExpiresAt    *time.Time       `json:"expiresAt,omitempty"`
}

// ListSheets 列出上传工作簿中的工作表
// POST /api/import/sheets
func (h *Handler) ListSheets(c *gin.Context) {
	filename, data, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	names, err := importer.SheetNames(bytes.NewReader(data), filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"filename": filename, "sheets": names})
}

// Import 导入排班表 (SSE 流式响应)
// POST /api/import
func (h *Handler) Import(c *gin.Context) {
	filename, data, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sheets := parseSheets(c.PostFormArray("sheets"))
	if len(sheets) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": workbook.ErrNoSheetsSelected.Error()})
		return
	}
	dryRun, err := parseDryRun(c.PostForm("dryRun"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	progressChan := h.coordinator.Import(c.Request.Context(), importer.Options{
		Filename: filename,
		Reader:   bytes.NewReader(data),
		Sheets:   sheets,
		DryRun:   dryRun,
	})

	for event := range progressChan {
		if event.Type == "done" || event.Type == "error" {
			event = h.finish(event)
		}

		eventData, err := json.Marshal(event)
		if err != nil {
			h.logger.Warn("failed to encode progress event", zap.String("type", event.Type), zap.Error(err))
			continue
		}

		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}

// finish 为终止事件附加预演令牌：试运行结果与提交失败的结果都可稍后提交
func (h *Handler) finish(event importer.ProgressEvent) importer.ProgressEvent {
	report, ok := event.Data.(*importer.Report)
	if !ok || report == nil {
		return event
	}

	result := ImportResult{Report: report}
	retryable := event.Type == "error" && !report.DryRun && !report.Result.Empty()
	if (event.Type == "done" && report.DryRun) || retryable {
		token, expiresAt := h.previews.put(report)
		result.PreviewToken = token
		result.ExpiresAt = &expiresAt
	}
	event.Data = result
	return event
}

// parseDryRun 解析 dryRun 表单字段；缺省为试运行，无法识别的值拒绝而不是当作提交
func parseDryRun(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid dryRun value %q: use true or false", raw)
	}
	return v, nil
}

func readUpload(c *gin.Context) (string, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, fmt.Errorf("no file uploaded")
		}
		return "", nil, fmt.Errorf("invalid form data: %w", err)
	}
	data, err := readFormFile(fh)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return fh.Filename, data, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// parseSheets 每个 sheets 字段一个工作表名（名称中可含逗号）
func parseSheets(values []string) []string {
	var sheets []string
	for _, v := range values {
		if name := strings.TrimSpace(v); name != "" {
			sheets = append(sheets, name)
		}
	}
	return sheets
}
