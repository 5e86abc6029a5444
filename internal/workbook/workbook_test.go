package workbook

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"broadoak/internal/model"
)

func buildRotaWorkbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	sheet := "Week 23"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	if _, err := f.NewSheet("Notes"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}

	_ = f.SetCellValue(sheet, "A1", "JOB MANAGER")
	_ = f.SetCellValue(sheet, "A2", "Dave Price")
	_ = f.SetCellValue(sheet, "C2", 42)

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		t.Fatalf("new date style: %v", err)
	}
	// 2024-06-03 的 Excel 序列号
	_ = f.SetCellValue(sheet, "B3", 45446)
	if err := f.SetCellStyle(sheet, "B3", "B3", dateStyle); err != nil {
		t.Fatalf("set date style: %v", err)
	}

	greyFill, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#BFBFBF"}},
	})
	if err != nil {
		t.Fatalf("new fill style: %v", err)
	}
	_ = f.SetCellValue(sheet, "B4", "Boiler Service - Alice")
	if err := f.SetCellStyle(sheet, "B4", "B4", greyFill); err != nil {
		t.Fatalf("set fill style: %v", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestOpen_XLSXGrid(t *testing.T) {
	t.Parallel()

	data := buildRotaWorkbook(t)
	wb, err := Open(bytes.NewReader(data), "rota.xlsx")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = wb.Close() })

	if wb.Format() != FormatXLSX {
		t.Fatalf("format=%s", wb.Format())
	}
	names := wb.SheetNames()
	if len(names) != 2 || names[0] != "Week 23" || names[1] != "Notes" {
		t.Fatalf("sheet names=%v", names)
	}

	grid, err := wb.Grid("Week 23")
	if err != nil {
		t.Fatalf("grid: %v", err)
	}

	if c := grid.At(0, 0); c.Kind != model.CellText || c.Text != "JOB MANAGER" {
		t.Fatalf("A1=%+v", c)
	}
	if c := grid.At(1, 2); c.Kind != model.CellNumber || c.Number != 42 {
		t.Fatalf("C2=%+v", c)
	}
	if c := grid.At(1, 1); !c.IsEmpty() {
		t.Fatalf("B2 should be empty, got %+v", c)
	}
	want := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	if c := grid.At(2, 1); c.Kind != model.CellDate || !c.Date.Equal(want) {
		t.Fatalf("B3=%+v, want date %s", c, want)
	}
	if c := grid.At(3, 1); c.Kind != model.CellText || c.Fill != "BFBFBF" {
		t.Fatalf("B4=%+v, want grey fill", c)
	}
}

func TestOpen_XLSGrid(t *testing.T) {
	t.Parallel()

	// 第 4 行缺失，第 5 行只有单元格记录而没有 ROW 记录
	data, err := os.ReadFile("testdata/rota.xls")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	wb, err := Open(bytes.NewReader(data), "upload")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = wb.Close() })

	if wb.Format() != FormatXLS {
		t.Fatalf("format=%s", wb.Format())
	}
	names := wb.SheetNames()
	if len(names) != 2 || names[0] != "Week 23" || names[1] != "Notes" {
		t.Fatalf("sheet names=%v", names)
	}

	grid, err := wb.Grid("Week 23")
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if len(grid) != 5 {
		t.Fatalf("rows=%d, want 5", len(grid))
	}
	if c := grid.At(0, 0); c.Kind != model.CellText || c.Text != "JOB MANAGER" {
		t.Fatalf("A1=%+v", c)
	}
	if c := grid.At(1, 0); c.Kind != model.CellText || c.Text != "Dave Price" {
		t.Fatalf("A2=%+v", c)
	}
	if c := grid.At(1, 2); c.Kind != model.CellNumber || c.Number != 42 {
		t.Fatalf("C2=%+v", c)
	}
	if c := grid.At(2, 1); c.Kind != model.CellNumber || c.Number != 45446 {
		t.Fatalf("B3=%+v, want date serial", c)
	}
	if c := grid.At(3, 0); !c.IsEmpty() {
		t.Fatalf("missing row should read empty, got %+v", c)
	}
	if c := grid.At(4, 1); c.Kind != model.CellText || c.Text != "Boiler Service - Alice" || c.Fill != "" {
		t.Fatalf("B5=%+v", c)
	}

	notes, err := wb.Grid("Notes")
	if err != nil {
		t.Fatalf("notes grid: %v", err)
	}
	if c := notes.At(0, 0); c.Text != "n/a" {
		t.Fatalf("Notes!A1=%+v", c)
	}
}

func TestOpen_Unreadable(t *testing.T) {
	t.Parallel()

	_, err := Open(bytes.NewReader([]byte("name,date\nalice,2024-06-03\n")), "rota.xlsx")
	if !errors.Is(err, ErrUnreadableWorkbook) {
		t.Fatalf("err=%v, want ErrUnreadableWorkbook", err)
	}

	_, err = Open(bytes.NewReader(nil), "rota.xlsx")
	if !errors.Is(err, ErrUnreadableWorkbook) {
		t.Fatalf("empty file err=%v", err)
	}
}

func TestGrids_SelectionErrors(t *testing.T) {
	t.Parallel()

	wb, err := Open(bytes.NewReader(buildRotaWorkbook(t)), "rota.xlsx")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = wb.Close() })

	if _, err := wb.Grids(nil); !errors.Is(err, ErrNoSheetsSelected) {
		t.Fatalf("err=%v, want ErrNoSheetsSelected", err)
	}

	_, err = wb.Grids([]string{"Week 23", "Week 99"})
	if !errors.Is(err, ErrSheetNotFound) {
		t.Fatalf("err=%v, want ErrSheetNotFound", err)
	}
	var sheetErr *SheetError
	if !errors.As(err, &sheetErr) || sheetErr.SheetName != "Week 99" {
		t.Fatalf("err=%v, want SheetError for Week 99", err)
	}

	grids, err := wb.Grids([]string{"Notes", "Week 23"})
	if err != nil {
		t.Fatalf("grids: %v", err)
	}
	if len(grids) != 2 || grids[0].Name != "Notes" {
		t.Fatalf("grids order=%v", grids)
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data []byte
		want Format
	}{
		{"rota.xls", nil, FormatXLS},
		{"rota.XLSX", nil, FormatXLSX},
		{"upload", ole2Magic, FormatXLS},
		{"upload", zipMagic, FormatXLSX},
		{"upload.bin", []byte("???"), FormatXLSX},
	}
	for _, tc := range cases {
		if got := DetectFormat(tc.name, tc.data); got != tc.want {
			t.Fatalf("DetectFormat(%q)=%s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestNormalizeColorAndDateCodes(t *testing.T) {
	t.Parallel()

	if got := NormalizeColor("#bfbfbf"); got != "BFBFBF" {
		t.Fatalf("NormalizeColor=%q", got)
	}
	if got := NormalizeColor("FFBFBFBF"); got != "BFBFBF" {
		t.Fatalf("NormalizeColor argb=%q", got)
	}
	if !isDateFormatCode(`ddd dd-mmm`) {
		t.Fatalf("ddd dd-mmm should be a date format")
	}
	if isDateFormatCode(`[Red]0.00;"day"`) {
		t.Fatalf("quoted literal should not count as date token")
	}
}

func TestXLSCell(t *testing.T) {
	t.Parallel()

	if c := xlsCell("2024-06-03T00:00:00Z"); c.Kind != model.CellDate || c.Date.Day() != 3 {
		t.Fatalf("date cell=%+v", c)
	}
	if c := xlsCell("12.5"); c.Kind != model.CellNumber || c.Number != 12.5 {
		t.Fatalf("number cell=%+v", c)
	}
	if c := xlsCell("  "); !c.IsEmpty() {
		t.Fatalf("blank cell=%+v", c)
	}
	if c := xlsCell("Fri 07-Jun"); c.Kind != model.CellText {
		t.Fatalf("text cell=%+v", c)
	}
}
