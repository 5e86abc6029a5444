package parser

import (
	"strings"
	"testing"
	"time"

	"broadoak/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// row 用简单值构造一行单元格：string→文本，time.Time→日期，数值→数值，nil→空
func row(values ...any) []model.Cell {
	cells := make([]model.Cell, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case nil:
		case string:
			cells[i] = model.TextCell(x)
		case time.Time:
			cells[i] = model.DateCell(x)
		case int:
			cells[i] = model.NumberCell(float64(x))
		case float64:
			cells[i] = model.NumberCell(x)
		case model.Cell:
			cells[i] = x
		}
	}
	return cells
}

func defaultOptions(today time.Time) Options {
	return Options{
		Sentinel:          "JOB MANAGER",
		AddressLayout:     LayoutKeyword,
		NotApplicableFill: "bfbfbf",
		Today:             today,
	}
}

func rotaGrid() model.Grid {
	grey := model.TextCell("Boiler Service - Carol")
	grey.Fill = "BFBFBF"
	return model.Grid{
		row("JOB MANAGER"),
		row("Dave Price"),
		row("B123 12 High Street"),
		row("Leeds LS1 4AB"),
		row(nil, "Mon 03-Jun", "Tue 04-Jun", "Wed 05-Jun"),
		row(nil, "Boiler Service - Alice & Bob", "Site visit", grey),
		row(nil, nil, "Rewire AM - Bob, Carol", "Task - "),
		row(),
		row("Job Manager:"),
		row(nil),
		row("7 Mill Lane"),
		row(nil, "Plastering - Alice"),
		row("JOB MANAGER"),
		row("Sam Hughes"),
		row("Notes only"),
		row(nil, day(2024, 6, 10), day(2024, 6, 11), day(2024, 6, 12)),
		row(nil, "Fit kitchen - Bob"),
	}
}

func TestSegment_KeywordLayout(t *testing.T) {
	t.Parallel()

	blocks, failures := Segment("Week 23", rotaGrid(), defaultOptions(day(2024, 6, 1)))

	if len(blocks) != 1 {
		t.Fatalf("blocks=%d, want 1 (%+v)", len(blocks), blocks)
	}
	b := blocks[0]
	if b.Manager != "Dave Price" {
		t.Fatalf("manager=%q", b.Manager)
	}
	if b.Address != "12 High Street, Leeds LS1 4AB" || b.ShortCode != "B123" {
		t.Fatalf("address=%q code=%q", b.Address, b.ShortCode)
	}
	if b.DateRow != 4 || len(b.Dates) != 3 || !b.Dates[1].Equal(day(2024, 6, 3)) {
		t.Fatalf("date row=%d dates=%v", b.DateRow, b.Dates)
	}

	// 第二个块缺日期行，第三个块缺地址
	if len(failures) != 2 {
		t.Fatalf("failures=%d, want 2: %+v", len(failures), failures)
	}
	if !strings.Contains(failures[0].Project, "row 9") || !strings.Contains(failures[0].Reason, "date header") {
		t.Fatalf("unexpected first failure: %+v", failures[0])
	}
	if failures[0].Date != nil || failures[0].Sheet != "Week 23" {
		t.Fatalf("block failure should have no date: %+v", failures[0])
	}
	if !strings.Contains(failures[1].Project, "row 13") || !strings.Contains(failures[1].Reason, "address") {
		t.Fatalf("unexpected second failure: %+v", failures[1])
	}
}

func TestSegment_UnknownManager(t *testing.T) {
	t.Parallel()

	grid := model.Grid{
		row("JOB MANAGER"),
		row(nil),
		row("4 Station Road"),
		row(nil, "03-Jun", "04-Jun", "05-Jun"),
	}
	blocks, failures := Segment("S", grid, defaultOptions(day(2024, 6, 1)))
	if len(failures) != 0 || len(blocks) != 1 {
		t.Fatalf("blocks=%v failures=%v", blocks, failures)
	}
	if blocks[0].Manager != "Unknown Manager" {
		t.Fatalf("manager=%q", blocks[0].Manager)
	}
}

func TestSegment_LabelLayout(t *testing.T) {
	t.Parallel()

	grid := model.Grid{
		row("Job Manager"),
		row("Sam Hughes"),
		row("Site Address:"),
		row("B-4410 Unit 3 Riverside"),
		row("Bristol"),
		row(nil, "Mon 03-Jun", "Tue 04-Jun", "Wed 05-Jun"),
	}
	opts := defaultOptions(day(2024, 6, 1))
	opts.AddressLayout = LayoutLabel

	blocks, failures := Segment("S", grid, opts)
	if len(failures) != 0 || len(blocks) != 1 {
		t.Fatalf("blocks=%v failures=%v", blocks, failures)
	}
	if blocks[0].Address != "Unit 3 Riverside, Bristol" || blocks[0].ShortCode != "B-4410" {
		t.Fatalf("address=%q code=%q", blocks[0].Address, blocks[0].ShortCode)
	}

	// 关键词模式下 "Unit 3 Riverside" 不含街道词汇，应报告缺地址
	opts.AddressLayout = LayoutKeyword
	_, failures = Segment("S", grid, opts)
	if len(failures) != 1 {
		t.Fatalf("keyword layout failures=%v", failures)
	}
}

func TestParseSheet_ExtractsCandidates(t *testing.T) {
	t.Parallel()

	res := ParseSheet("Week 23", rotaGrid(), defaultOptions(day(2024, 6, 4)))

	// 03-Jun 早于今天被跳过；灰色填充单元格跳过；"Site visit" 无分隔符被忽略
	var got []string
	for _, s := range res.Candidates {
		got = append(got, s.Date.Format("01-02")+" "+s.Task+" / "+s.RawName)
	}
	// 第三个块缺地址，不产生班次
	want := []string{
		"06-04 Rewire AM / Bob",
		"06-04 Rewire AM / Carol",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("candidates=%v, want %v", got, want)
	}

	for _, s := range res.Candidates {
		if s.Type != model.ShiftMorning {
			t.Fatalf("type=%s, want am", s.Type)
		}
		if s.Manager != "Dave Price" || s.ShortCode != "B123" || s.Sheet != "Week 23" {
			t.Fatalf("unexpected shift fields: %+v", s)
		}
	}

	// "Task - " 为畸形单元格
	var malformed int
	for _, f := range res.Failures {
		if strings.HasPrefix(f.Reason, "Malformed") {
			malformed++
			if f.Date == nil || !f.Date.Equal(day(2024, 6, 5)) || f.CellText != "Task -" {
				t.Fatalf("malformed failure=%+v", f)
			}
		}
	}
	if malformed != 1 {
		t.Fatalf("malformed failures=%d, want 1: %+v", malformed, res.Failures)
	}
	if res.Blocks != 3 || res.Skipped != 2 {
		t.Fatalf("blocks=%d skipped=%d", res.Blocks, res.Skipped)
	}
}

func TestParseSheet_MultiNameFanOut(t *testing.T) {
	t.Parallel()

	res := ParseSheet("S", rotaGrid(), defaultOptions(day(2024, 6, 3)))

	var fan []model.Shift
	for _, s := range res.Candidates {
		if s.SourceCell == "Boiler Service - Alice & Bob" {
			fan = append(fan, s)
		}
	}
	if len(fan) != 2 {
		t.Fatalf("fan-out=%d, want 2", len(fan))
	}
	if fan[0].RawName != "Alice" || fan[1].RawName != "Bob" {
		t.Fatalf("names=%q,%q", fan[0].RawName, fan[1].RawName)
	}
	a, b := fan[0], fan[1]
	a.RawName, b.RawName = "", ""
	if a != b {
		t.Fatalf("fan-out shifts should share task/date/address/manager: %+v vs %+v", a, b)
	}
	if a.Task != "Boiler Service" || a.Type != model.ShiftAllDay || !a.Date.Equal(day(2024, 6, 3)) {
		t.Fatalf("unexpected shift: %+v", a)
	}
}

func TestExtract_MultiWeekBlock(t *testing.T) {
	t.Parallel()

	grid := model.Grid{
		row("JOB MANAGER"),
		row("Dave Price"),
		row("1 Park Road"),
		row(nil, "03-Jun", "04-Jun", "05-Jun"),
		row(nil, "Survey - Alice"),
		row(nil, "10-Jun", "11-Jun", "12-Jun"),
		row(nil, nil, "Survey PM - Bob"),
	}
	res := ParseSheet("S", grid, defaultOptions(day(2024, 6, 1)))
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates=%+v", res.Candidates)
	}
	if !res.Candidates[1].Date.Equal(day(2024, 6, 11)) || res.Candidates[1].Type != model.ShiftAfternoon {
		t.Fatalf("second week shift=%+v", res.Candidates[1])
	}
	if len(res.Failures) != 0 {
		t.Fatalf("failures=%+v", res.Failures)
	}
}

func TestParseDateCell(t *testing.T) {
	t.Parallel()

	cases := []struct {
		cell model.Cell
		want time.Time
		ok   bool
	}{
		{model.TextCell("03-Jun"), day(2024, 6, 3), true},
		{model.TextCell("Monday 3rd June"), day(2024, 6, 3), true},
		{model.TextCell("Fri 07 Jun"), day(2024, 6, 7), true},
		{model.TextCell("04/06/2024"), day(2024, 6, 4), true},
		{model.TextCell("2024-06-05"), day(2024, 6, 5), true},
		{model.TextCell("31-Jun"), time.Time{}, false},
		{model.TextCell("Mon"), time.Time{}, false},
		{model.NumberCell(45446), day(2024, 6, 3), true},
		{model.NumberCell(7), time.Time{}, false},
		{model.DateCell(time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC)), day(2024, 6, 3), true},
	}
	for _, tc := range cases {
		got, ok := ParseDateCell(tc.cell, 2024)
		if ok != tc.ok || !got.Equal(tc.want) {
			t.Fatalf("ParseDateCell(%+v)=%v,%v want %v,%v", tc.cell, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSplitHelpers(t *testing.T) {
	t.Parallel()

	task, names, ok := SplitTaskNames("Re-plaster - Alice + Bob")
	if !ok || task != "Re-plaster" || names != "Alice + Bob" {
		t.Fatalf("split=%q %q %v", task, names, ok)
	}
	if got := SplitNames("Alice & Bob, Carol + Dan"); len(got) != 4 || got[3] != "Dan" {
		t.Fatalf("SplitNames=%v", got)
	}
	if _, _, ok := SplitTaskNames("Site visit"); ok {
		t.Fatalf("text without separator should not split")
	}
	if got := NormalizeSpace("  Boiler \n Service -  Alice "); got != "Boiler Service - Alice" {
		t.Fatalf("NormalizeSpace=%q", got)
	}

	addr, code := splitShortCode([]string{"12 High Street"})
	if addr != "12 High Street" || code != "" {
		t.Fatalf("house number must stay in address: %q %q", addr, code)
	}
	addr, code = splitShortCode([]string{"B123"})
	if addr != "B123" || code != "" {
		t.Fatalf("code without remaining text stays: %q %q", addr, code)
	}

	if InferShiftType("Boiler (pm)") != model.ShiftAfternoon || InferShiftType("Alarm check") != model.ShiftAllDay {
		t.Fatalf("InferShiftType mismatch")
	}
}
