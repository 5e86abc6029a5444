package importer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"broadoak/internal/matcher"
	"broadoak/internal/model"
	"broadoak/internal/parser"
	"broadoak/internal/reconcile"
	"broadoak/internal/workbook"
)

// Coordinator 导入协调器：读取 → 切块 → 提取 → 姓名解析 → 对账 → 提交
type Coordinator struct {
	store    ShiftStore
	journal  Journal
	settings Settings
	now      func() time.Time
	logger   *zap.Logger
}

// NewCoordinator 创建导入协调器；journal 可为 nil
func NewCoordinator(store ShiftStore, journal Journal, settings Settings, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &Coordinator{
		store:    store,
		journal:  journal,
		settings: settings,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock 替换时钟（“今天”由该时钟与配置时区共同决定）
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// Today 当前配置时区下的今天（UTC 零点）
func (c *Coordinator) Today() time.Time {
	return model.Today(c.now(), c.settings.Location)
}

// Import 执行导入，返回进度通道；最后一个事件为 done 或 error
func (c *Coordinator) Import(ctx context.Context, opts Options) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		report, err := c.run(ctx, opts, progressChan)
		if err != nil {
			c.sendFinal(ctx, progressChan, ProgressEvent{
				Type:      "error",
				Message:   err.Error(),
				Data:      report,
				Timestamp: c.now(),
			})
			return
		}
		c.sendFinal(ctx, progressChan, ProgressEvent{
			Type:      "done",
			Message:   report.Summary(),
			Data:      report,
			Timestamp: c.now(),
		})
	}()

	return progressChan
}

// Run 同步执行导入；DryRun 时只计算不写入
func (c *Coordinator) Run(ctx context.Context, opts Options) (*Report, error) {
	return c.run(ctx, opts, nil)
}

// SheetNames 读取上传文件中的工作表名称，不访问存储
func SheetNames(r io.Reader, filename string) ([]string, error) {
	wb, err := workbook.Open(r, filename)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.SheetNames(), nil
}

func (c *Coordinator) run(ctx context.Context, opts Options, progressChan chan ProgressEvent) (report *Report, err error) {
	startTime := c.now()
	report = &Report{
		ID:        uuid.NewString(),
		Filename:  filepath.Base(opts.Filename),
		DryRun:    opts.DryRun,
		Status:    model.ImportPreview,
		Today:     c.Today(),
		StartedAt: startTime,
	}
	logger := c.logger.With(zap.String("import_id", report.ID), zap.String("filename", report.Filename))

	// 整体失败（文件不可读、存储读取失败）也留下导入日志；提交失败在 commit 中记录
	defer func() {
		if err != nil && report.Status != model.ImportFailed {
			report.Status = model.ImportFailed
			report.Error = err.Error()
			report.CompletedAt = c.now()
			report.Duration = report.CompletedAt.Sub(startTime)
			c.saveLog(ctx, report)
		}
	}()

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "start",
		Message: "Import started",
		Data: map[string]any{
			"filename": report.Filename,
			"dryRun":   opts.DryRun,
		},
		Timestamp: c.now(),
	})

	if opts.Reader == nil {
		return report, fmt.Errorf("%w: no file provided", workbook.ErrUnreadableWorkbook)
	}
	data, err := io.ReadAll(opts.Reader)
	if err != nil {
		return report, fmt.Errorf("failed to read upload: %w", err)
	}
	sum := sha256.Sum256(data)
	report.FileHash = hex.EncodeToString(sum[:])

	wb, err := workbook.Open(bytes.NewReader(data), opts.Filename)
	if err != nil {
		logger.Warn("workbook unreadable", zap.Error(err))
		return report, err
	}
	defer wb.Close()
	report.Format = string(wb.Format())

	grids, err := wb.Grids(opts.Sheets)
	if err != nil {
		logger.Warn("sheet selection rejected", zap.Error(err))
		return report, err
	}

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "info",
		Message: fmt.Sprintf("Processing %d sheet(s): %s", len(grids), sheetList(opts.Sheets)),
		Data: map[string]any{
			"total_sheets": len(grids),
			"format":       report.Format,
			"today":        report.Today.Format(model.DateLayout),
		},
		Timestamp: c.now(),
	})

	parseOpts := parser.Options{
		Sentinel:          c.settings.Sentinel,
		AddressLayout:     c.settings.AddressLayout,
		NotApplicableFill: c.settings.NotApplicableFill,
		Today:             report.Today,
	}

	var candidates []model.Shift
	for _, sg := range grids {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "sheet_start",
			Message:   fmt.Sprintf("Parsing sheet: %s", sg.Name),
			Data:      map[string]string{"sheet_name": sg.Name},
			Timestamp: c.now(),
		})

		res := parser.ParseSheet(sg.Name, sg.Grid, parseOpts)
		candidates = append(candidates, res.Candidates...)
		report.Failures = append(report.Failures, res.Failures...)
		summary := SheetSummary{
			Sheet:      sg.Name,
			Blocks:     res.Blocks,
			Skipped:    res.Skipped,
			Candidates: len(res.Candidates),
			Failures:   len(res.Failures),
		}
		report.Sheets = append(report.Sheets, summary)

		if len(res.Failures) > 0 {
			c.sendProgress(progressChan, ProgressEvent{
				Type:      "warning",
				Message:   fmt.Sprintf("Sheet %s: %d failure(s)", sg.Name, len(res.Failures)),
				Data:      res.Failures,
				Timestamp: c.now(),
			})
		}
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "sheet_done",
			Message:   fmt.Sprintf("Sheet %s: %d block(s), %d candidate shift(s)", sg.Name, res.Blocks, len(res.Candidates)),
			Data:      summary,
			Timestamp: c.now(),
		})
		logger.Debug("sheet parsed",
			zap.String("sheet", sg.Name),
			zap.Int("blocks", res.Blocks),
			zap.Int("skipped", res.Skipped),
			zap.Int("candidates", len(res.Candidates)))
	}
	report.Candidates = len(candidates)

	users, err := c.store.ListUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load user directory: %w", err)
	}
	resolver := matcher.NewResolver(users)
	resolved, nameFailures := resolver.ResolveShifts(candidates)
	report.Resolved = len(resolved)
	report.Failures = append(report.Failures, nameFailures...)

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "info",
		Message: fmt.Sprintf("Resolved %d of %d name(s) against %d user(s)", len(resolved), len(candidates), resolver.Len()),
		Data: map[string]int{
			"resolved":   len(resolved),
			"unresolved": len(nameFailures),
		},
		Timestamp: c.now(),
	})

	var existing []model.Shift
	if from, to, ok := reconcile.Window(resolved); ok {
		existing, err = c.store.ListShiftsInRange(ctx, from, to)
		if err != nil {
			return report, fmt.Errorf("failed to load existing shifts: %w", err)
		}
	}
	report.Result = reconcile.Reconcile(resolved, existing, c.settings.Protected)

	logger.Info("reconciliation computed",
		zap.Int("creates", len(report.Result.Creates)),
		zap.Int("updates", len(report.Result.Updates)),
		zap.Int("deletes", len(report.Result.Deletes)),
		zap.Int("failures", len(report.Failures)),
		zap.Bool("dry_run", opts.DryRun))

	if opts.DryRun {
		report.CompletedAt = c.now()
		report.Duration = report.CompletedAt.Sub(startTime)
		c.saveLog(ctx, report)
		return report, nil
	}

	if err := c.commit(ctx, report, progressChan); err != nil {
		return report, err
	}
	return report, nil
}

// Commit 提交先前试运行得到的结果，无需重新上传文件
func (c *Coordinator) Commit(ctx context.Context, report *Report) error {
	return c.commit(ctx, report, nil)
}

func (c *Coordinator) commit(ctx context.Context, report *Report, progressChan chan ProgressEvent) error {
	if report.Status == model.ImportCommitted {
		return ErrAlreadyCommitted
	}
	logger := c.logger.With(zap.String("import_id", report.ID))

	// 重试时跳过之前已成功提交的批次
	ops := report.Result.Operations()
	if n := report.processed(); n > 0 && n <= len(ops) {
		ops = ops[n:]
	}
	chunks := reconcile.Chunk(ops, c.settings.BatchLimit)
	protected := model.NewStatusSet(c.settings.Protected)

	for i, chunk := range chunks {
		res, err := c.store.ApplyBatch(ctx, chunk, protected)
		if err != nil {
			report.Status = model.ImportFailed
			report.Error = err.Error()
			report.CompletedAt = c.now()
			report.Duration = report.CompletedAt.Sub(report.StartedAt)
			logger.Error("batch rejected",
				zap.Int("batch", i+1),
				zap.Int("batches", len(chunks)),
				zap.Int("applied", report.Applied),
				zap.Error(err))
			c.saveLog(ctx, report)
			return fmt.Errorf("%w: batch %d of %d: %w", ErrCommitFailed, i+1, len(chunks), err)
		}
		report.Applied += len(res.Applied)
		report.Skipped = append(report.Skipped, res.Skipped...)
		report.Batches++
		c.recordChanges(ctx, report, res.Applied)

		c.sendProgress(progressChan, ProgressEvent{
			Type:      "info",
			Message:   fmt.Sprintf("Committed batch %d of %d (%d operation(s))", i+1, len(chunks), len(res.Applied)),
			Timestamp: c.now(),
		})
		for _, op := range res.Skipped {
			logger.Warn("shift became protected before commit, skipped",
				zap.String("op", string(op.Kind)),
				zap.String("shift_id", op.TargetID()))
			c.sendProgress(progressChan, ProgressEvent{
				Type:      "warning",
				Message:   fmt.Sprintf("Skipped %s of shift %s: status changed to a protected value after preview", op.Kind, op.TargetID()),
				Timestamp: c.now(),
			})
		}
	}

	report.DryRun = false
	report.Status = model.ImportCommitted
	report.Error = ""
	report.CompletedAt = c.now()
	report.Duration = report.CompletedAt.Sub(report.StartedAt)
	c.saveLog(ctx, report)

	logger.Info("import committed",
		zap.Int("applied", report.Applied),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("batches", report.Batches))
	return nil
}

// recordChanges 将已提交的操作写入班次变更日志
func (c *Coordinator) recordChanges(ctx context.Context, report *Report, applied []model.ShiftOp) {
	if c.journal == nil || len(applied) == 0 {
		return
	}
	changes := make([]reconcile.ChangeSet, 0, len(applied))
	for _, op := range applied {
		changes = append(changes, reconcile.FromOp(op))
	}
	n, err := c.journal.RecordChanges(ctx, report.ID, changes)
	if err != nil {
		c.logger.Warn("failed to record shift changes", zap.String("import_id", report.ID), zap.Error(err))
		return
	}
	report.Recorded += n
}

// saveLog 写入导入日志；日志写入失败只记录告警，不影响导入结果
func (c *Coordinator) saveLog(ctx context.Context, report *Report) {
	if c.journal == nil {
		return
	}
	if err := c.journal.SaveImportLog(ctx, report.ImportLog(), report.Failures); err != nil {
		c.logger.Warn("failed to save import log", zap.String("import_id", report.ID), zap.Error(err))
	}
}

// sendProgress 发送进度事件（非阻塞）
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	if ch == nil {
		return
	}
	select {
	case ch <- event:
	default:
		// 通道已满，丢弃事件
	}
}

// sendFinal 终止事件必须送达，除非调用方已取消
func (c *Coordinator) sendFinal(ctx context.Context, ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	case <-ctx.Done():
	}
}
