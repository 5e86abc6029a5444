package exporter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"broadoak/internal/importer"
	"broadoak/internal/model"
)

const (
	SheetSummary  = "Summary"
	SheetCreate   = "Create"
	SheetUpdate   = "Update"
	SheetDelete   = "Delete"
	SheetFailures = "Failures"
)

var shiftHeaders = []string{"Date", "User", "User ID", "Address", "Short code", "Task", "Manager", "Type", "Status"}

// ExportPreview 将导入报告渲染为工作簿：摘要、待创建、待更新、待删除与失败列表
func ExportPreview(r *importer.Report, progress func(ProgressEvent)) (*excelize.File, error) {
	if r == nil {
		return nil, fmt.Errorf("no report to export")
	}
	f := excelize.NewFile()

	reportProgress(progress, 5, "preparing workbook")
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetCreate, SheetUpdate, SheetDelete, SheetFailures} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	steps := []struct {
		percent int
		stage   string
		fill    func() error
	}{
		{20, "writing summary", func() error { return writeSummary(f, r, header) }},
		{40, "writing creates", func() error { return writeShifts(f, SheetCreate, r.Result.Creates, header) }},
		{60, "writing updates", func() error { return writeUpdates(f, r.Result.Updates, header) }},
		{75, "writing deletes", func() error { return writeShifts(f, SheetDelete, r.Result.Deletes, header) }},
		{90, "writing failures", func() error { return writeFailures(f, r.Failures, header) }},
	}
	for _, step := range steps {
		if err := step.fill(); err != nil {
			f.Close()
			return nil, err
		}
		reportProgress(progress, step.percent, step.stage)
	}

	reportProgress(progress, 100, "done")
	return f, nil
}

func writeSummary(f *excelize.File, r *importer.Report, header int) error {
	rows := [][]any{
		{"Field", "Value"},
		{"Import ID", r.ID},
		{"File", r.Filename},
		{"Format", r.Format},
		{"Sheets", strings.Join(r.SheetNames(), ", ")},
		{"Today", r.Today.Format(model.DateLayout)},
		{"Status", string(r.Status)},
		{"Candidate shifts", r.Candidates},
		{"Resolved shifts", r.Resolved},
		{"To create", len(r.Result.Creates)},
		{"To update", len(r.Result.Updates)},
		{"To delete", len(r.Result.Deletes)},
		{"Unchanged", r.Result.Unchanged},
		{"Protected (skipped)", r.Result.Protected},
		{"Protected at commit", len(r.Skipped)},
		{"Duplicates dropped", r.Result.Duplicates},
		{"Failures", len(r.Failures)},
	}
	if err := writeRows(f, SheetSummary, rows); err != nil {
		return err
	}
	return styleHeader(f, SheetSummary, 2, header)
}

func writeShifts(f *excelize.File, sheet string, shifts []model.Shift, header int) error {
	rows := make([][]any, 0, len(shifts)+1)
	rows = append(rows, toAny(shiftHeaders))
	for _, s := range shifts {
		rows = append(rows, shiftRow(s))
	}
	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	return styleHeader(f, sheet, len(shiftHeaders), header)
}

func writeUpdates(f *excelize.File, updates []model.ShiftUpdate, header int) error {
	headers := append(append([]string{}, shiftHeaders...), "Changed fields", "New manager", "New short code", "New type")
	rows := make([][]any, 0, len(updates)+1)
	rows = append(rows, toAny(headers))
	for _, u := range updates {
		row := shiftRow(u.Before)
		after := u.Apply(u.Before)
		row = append(row, strings.Join(u.Fields(), ", "), after.Manager, after.ShortCode, string(after.Type))
		rows = append(rows, row)
	}
	if err := writeRows(f, SheetUpdate, rows); err != nil {
		return err
	}
	return styleHeader(f, SheetUpdate, len(headers), header)
}

func writeFailures(f *excelize.File, failures []model.Failure, header int) error {
	headers := []string{"Date", "Project", "Cell text", "Reason", "Sheet"}
	rows := make([][]any, 0, len(failures)+1)
	rows = append(rows, toAny(headers))
	for _, fl := range failures {
		date := ""
		if fl.Date != nil {
			date = fl.Date.Format(model.DateLayout)
		}
		rows = append(rows, []any{date, fl.Project, fl.CellText, fl.Reason, fl.Sheet})
	}
	if err := writeRows(f, SheetFailures, rows); err != nil {
		return err
	}
	return styleHeader(f, SheetFailures, len(headers), header)
}

func shiftRow(s model.Shift) []any {
	return []any{
		s.Date.Format(model.DateLayout),
		s.UserName,
		s.UserID,
		s.Address,
		s.ShortCode,
		s.Task,
		s.Manager,
		string(s.Type),
		string(s.Status),
	}
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, cols, style int) error {
	end, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", end, style); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, Split: false, XSplit: 0, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
