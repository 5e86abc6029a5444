package parser

import (
	"strings"
	"time"

	"broadoak/internal/model"
)

// ParseSheet 对单个工作表执行切块与单元格提取
func ParseSheet(sheet string, grid model.Grid, opts Options) SheetResult {
	res := SheetResult{Sheet: sheet}

	blocks, failures := Segment(sheet, grid, opts)
	res.Blocks = len(blocks) + len(failures)
	res.Skipped = len(failures)
	res.Failures = append(res.Failures, failures...)

	for _, b := range blocks {
		shifts, fails := Extract(sheet, grid, b, opts)
		res.Candidates = append(res.Candidates, shifts...)
		res.Failures = append(res.Failures, fails...)
	}
	return res
}

// Extract 遍历块内日期列下的单元格，生成候选班次（姓名解析之前）
func Extract(sheet string, grid model.Grid, b Block, opts Options) ([]model.Shift, []model.Failure) {
	var shifts []model.Shift
	var failures []model.Failure

	fill := strings.ToUpper(strings.TrimPrefix(opts.NotApplicableFill, "#"))
	dates := b.Dates
	cols := sortedColumns(dates)

	for r := b.DateRow + 1; r < b.EndRow && r < len(grid); r++ {
		// 多周块：块内出现新的日期表头时切换列映射
		if next := dateColumns(grid[r], opts.Year()); len(next) > 2 {
			dates = next
			cols = sortedColumns(dates)
			continue
		}

		for _, c := range cols {
			cell := grid.At(r, c)
			if cell.IsEmpty() {
				continue
			}
			date := dates[c]
			if date.Before(opts.Today) {
				continue
			}
			if fill != "" && cell.Fill == fill {
				continue
			}
			if cell.Kind != model.CellText {
				continue
			}
			if IsDateLike(cell) {
				if _, ok := ParseDateCell(cell, opts.Year()); ok {
					continue
				}
			}

			text := NormalizeSpace(cell.Text)
			task, namesPart, ok := SplitTaskNames(text)
			if !ok {
				continue
			}
			names := SplitNames(namesPart)
			if task == "" || len(names) == 0 {
				failures = append(failures, cellFailure(sheet, b, date, text, "Malformed shift cell: missing task or names"))
				continue
			}

			shiftType := InferShiftType(task)
			for _, name := range names {
				shifts = append(shifts, model.Shift{
					Date:       date,
					Address:    b.Address,
					ShortCode:  b.ShortCode,
					Task:       task,
					Manager:    b.Manager,
					Type:       shiftType,
					RawName:    name,
					SourceCell: text,
					Sheet:      sheet,
				})
			}
		}
	}
	return shifts, failures
}

// InferShiftType 任务文本含 AM / PM 标记时为半天班，否则为全天
func InferShiftType(task string) model.ShiftType {
	switch {
	case reAMToken.MatchString(task):
		return model.ShiftMorning
	case rePMToken.MatchString(task):
		return model.ShiftAfternoon
	default:
		return model.ShiftAllDay
	}
}

func cellFailure(sheet string, b Block, date time.Time, text, reason string) model.Failure {
	d := date
	return model.Failure{
		Date:     &d,
		Project:  b.Address,
		CellText: text,
		Reason:   reason,
		Sheet:    sheet,
	}
}
