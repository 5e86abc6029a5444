package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"broadoak/internal/config"
	"broadoak/internal/model"
	"broadoak/internal/parser"
	"broadoak/internal/reconcile"
)

var (
	// ErrCommitFailed 批量写入被拒绝；试运行结果保留，可重试提交
	ErrCommitFailed = errors.New("commit failed")
	// ErrAlreadyCommitted 该结果已提交过
	ErrAlreadyCommitted = errors.New("import already committed")
)

// ShiftStore 用户目录读取、班次范围读取与批量写入
type ShiftStore interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	ListShiftsInRange(ctx context.Context, from, to time.Time) ([]model.Shift, error)
	ApplyBatch(ctx context.Context, ops []model.ShiftOp, protected model.StatusSet) (model.BatchResult, error)
}

// Journal 导入日志与班次变更日志
type Journal interface {
	SaveImportLog(ctx context.Context, log model.ImportLog, failures []model.Failure) error
	RecordChanges(ctx context.Context, importID string, changes []reconcile.ChangeSet) (int, error)
}

// Settings 导入流程参数（由配置显式传入）
type Settings struct {
	Sentinel          string
	AddressLayout     parser.AddressLayout
	NotApplicableFill string
	Protected         []model.ShiftStatus
	Location          *time.Location
	BatchLimit        int
}

// DefaultSettings 默认导入参数
func DefaultSettings() Settings {
	s, _ := NewSettings(config.DefaultConfig())
	return s
}

// NewSettings 从应用配置构建导入参数
func NewSettings(cfg *config.AppConfig) (Settings, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Sentinel:          cfg.Import.Sentinel,
		AddressLayout:     parser.AddressLayout(cfg.Import.AddressLayout),
		NotApplicableFill: cfg.Import.NotApplicableFill,
		Protected:         cfg.Protected(),
		Location:          loc,
		BatchLimit:        cfg.Store.BatchLimit,
	}, nil
}

// Options 单次导入请求
type Options struct {
	Filename string
	Reader   io.Reader
	Sheets   []string // 操作员选择的工作表，按此顺序处理
	DryRun   bool
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string    `json:"type"`      // start/info/sheet_start/sheet_done/warning/error/done
	Message   string    `json:"message"`   // 事件消息
	Data      any       `json:"data"`      // 附加数据
	Timestamp time.Time `json:"timestamp"` // 时间戳
}

// SheetSummary 单个工作表的处理统计
type SheetSummary struct {
	Sheet      string `json:"sheet"`
	Blocks     int    `json:"blocks"`
	Skipped    int    `json:"skippedBlocks"`
	Candidates int    `json:"candidates"`
	Failures   int    `json:"failures"`
}

// Report 导入报告：对账结果与失败列表，试运行后可原样提交
type Report struct {
	ID       string             `json:"id"`
	Filename string             `json:"filename"`
	FileHash string             `json:"fileHash"`
	Format   string             `json:"format"` // xlsx / xls
	Sheets   []SheetSummary     `json:"sheets"`
	DryRun   bool               `json:"dryRun"`
	Status   model.ImportStatus `json:"status"`
	Today    time.Time          `json:"today"`

	Candidates int              `json:"candidates"`
	Resolved   int              `json:"resolved"`
	Result     reconcile.Result `json:"result"`
	Failures   []model.Failure  `json:"failures"`

	Applied  int             `json:"applied"`
	Skipped  []model.ShiftOp `json:"skipped,omitempty"` // 提交时目标已进入受保护状态而放弃的操作
	Batches  int             `json:"batches"`
	Recorded int             `json:"recordedEvents"`
	Error    string          `json:"error,omitempty"`

	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt"`
	Duration    time.Duration `json:"duration"`
}

// SheetNames 报告涉及的工作表名
func (r *Report) SheetNames() []string {
	names := make([]string, 0, len(r.Sheets))
	for _, s := range r.Sheets {
		names = append(names, s.Sheet)
	}
	return names
}

// Summary 一行摘要
func (r *Report) Summary() string {
	line := fmt.Sprintf("%d to create, %d to update, %d to delete, %d failures",
		len(r.Result.Creates), len(r.Result.Updates), len(r.Result.Deletes), len(r.Failures))
	if len(r.Skipped) > 0 {
		line += fmt.Sprintf(", %d skipped as protected at commit", len(r.Skipped))
	}
	return line
}

// processed 已处理（写入或跳过）的操作数，重试提交从此处继续
func (r *Report) processed() int {
	return r.Applied + len(r.Skipped)
}

// ImportLog 转为导入日志
func (r *Report) ImportLog() model.ImportLog {
	log := model.ImportLog{
		ID:        r.ID,
		Filename:  r.Filename,
		FileHash:  r.FileHash,
		Sheets:    r.SheetNames(),
		DryRun:    r.DryRun,
		Status:    r.Status,
		Creates:   len(r.Result.Creates),
		Updates:   len(r.Result.Updates),
		Deletes:   len(r.Result.Deletes),
		Failures:  len(r.Failures),
		Error:     r.Error,
		StartedAt: r.StartedAt,
	}
	if !r.CompletedAt.IsZero() {
		t := r.CompletedAt
		log.CompletedAt = &t
	}
	return log
}

func sheetList(names []string) string {
	return strings.Join(names, ", ")
}
