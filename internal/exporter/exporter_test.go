package exporter

import (
	"testing"
	"time"

	"broadoak/internal/importer"
	"broadoak/internal/model"
	"broadoak/internal/reconcile"
)

func TestExportPreview(t *testing.T) {
	t.Parallel()

	d := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	mgr := "Sam Hughes"
	before := model.Shift{ID: "s1", UserID: "u1", UserName: "Alice Smith", Date: d, Address: "12 High Street", Task: "Boiler", Manager: "Dave Price", Type: model.ShiftAllDay}
	report := &importer.Report{
		ID:       "imp-1",
		Filename: "rota.xlsx",
		Sheets:   []importer.SheetSummary{{Sheet: "Week 23"}},
		DryRun:   true,
		Status:   model.ImportPreview,
		Today:    d,
		Result: reconcile.Result{
			Creates: []model.Shift{{UserID: "u2", UserName: "Bob Jones", Date: d, Address: "12 High Street", Task: "Rewire", Type: model.ShiftMorning}},
			Updates: []model.ShiftUpdate{{ID: "s1", Manager: &mgr, Before: before}},
		},
		Failures: []model.Failure{{Date: &d, Project: "12 High Street", CellText: "Survey - Zachary", Reason: `Could not find a user matching "Zachary"`, Sheet: "Week 23"}},
	}

	var last ProgressEvent
	f, err := ExportPreview(report, func(e ProgressEvent) { last = e })
	if err != nil {
		t.Fatalf("ExportPreview: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	if last.Percent != 100 {
		t.Fatalf("last progress=%+v", last)
	}

	want := []string{SheetSummary, SheetCreate, SheetUpdate, SheetDelete, SheetFailures}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sheets=%v, want %v", got, want)
		}
	}

	rows, err := f.GetRows(SheetCreate)
	if err != nil || len(rows) != 2 || rows[1][0] != "2024-06-03" || rows[1][5] != "Rewire" {
		t.Fatalf("create rows=%v, %v", rows, err)
	}

	rows, _ = f.GetRows(SheetUpdate)
	if len(rows) != 2 || rows[1][6] != "Dave Price" || rows[1][9] != "manager" || rows[1][10] != "Sam Hughes" {
		t.Fatalf("update rows=%v", rows)
	}

	rows, _ = f.GetRows(SheetDelete)
	if len(rows) != 1 {
		t.Fatalf("delete sheet should only have a header: %v", rows)
	}

	rows, _ = f.GetRows(SheetFailures)
	if len(rows) != 2 || rows[1][3] != `Could not find a user matching "Zachary"` {
		t.Fatalf("failure rows=%v", rows)
	}

	if v, _ := f.GetCellValue(SheetSummary, "B2"); v != "imp-1" {
		t.Fatalf("summary import id=%q", v)
	}
}

func TestExportPreview_NilReport(t *testing.T) {
	t.Parallel()

	if _, err := ExportPreview(nil, nil); err == nil {
		t.Fatalf("expected error for nil report")
	}
}
