package parser

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"broadoak/internal/model"
)

const unknownManager = "Unknown Manager"

// Segment 扫描 A 列哨兵，切分工单块，并定位经理、地址与日期表头行
// 缺少地址或日期行的块各产生一条失败记录并被跳过，不影响其他块
func Segment(sheet string, grid model.Grid, opts Options) ([]Block, []model.Failure) {
	sentinel := NormalizeUpper(opts.Sentinel)
	if sentinel == "" {
		sentinel = "JOB MANAGER"
	}

	var starts []int
	for r := range grid {
		cell := grid.At(r, 0)
		if cell.Kind != model.CellText {
			continue
		}
		if strings.Contains(NormalizeUpper(cell.Text), sentinel) {
			starts = append(starts, r)
		}
	}

	var blocks []Block
	var failures []model.Failure
	for i, start := range starts {
		end := len(grid)
		if i+1 < len(starts) {
			end = starts[i+1]
		}

		b := Block{
			StartRow:   start,
			EndRow:     end,
			Manager:    unknownManager,
			AddressRow: -1,
			DateRow:    -1,
		}
		if m := grid.At(start+1, 0); !m.IsEmpty() {
			if name := NormalizeSpace(m.String()); name != "" {
				b.Manager = name
			}
		}
		b.Label = fmt.Sprintf("Block at row %d (%s)", b.DisplayRow(), b.Manager)

		if row, dates := findDateRow(grid, start+1, end, opts.Year()); row >= 0 {
			b.DateRow = row
			b.Dates = dates
		}

		limit := end
		if b.DateRow >= 0 {
			limit = b.DateRow
		}
		b.Address, b.ShortCode, b.AddressRow = locateAddress(grid, start+2, limit, opts.AddressLayout)

		sentinelText := NormalizeSpace(grid.At(start, 0).String())
		switch {
		case b.AddressRow < 0 || b.Address == "":
			failures = append(failures, model.Failure{
				Project:  b.Label,
				CellText: sentinelText,
				Reason:   "Could not find an address for this job block",
				Sheet:    sheet,
			})
			continue
		case b.DateRow < 0:
			failures = append(failures, model.Failure{
				Project:  b.Label,
				CellText: sentinelText,
				Reason:   "Could not find a date header row for this job block",
				Sheet:    sheet,
			})
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks, failures
}

// findDateRow 在 [from, limit) 内查找第一行日期表头
func findDateRow(grid model.Grid, from, limit, year int) (int, map[int]time.Time) {
	for r := from; r < limit && r < len(grid); r++ {
		if dates := dateColumns(grid[r], year); len(dates) > 2 {
			return r, dates
		}
	}
	return -1, nil
}

// dateColumns 解析一行中所有可识别为日期的列
func dateColumns(row []model.Cell, year int) map[int]time.Time {
	dates := make(map[int]time.Time)
	for c, cell := range row {
		if !IsDateLike(cell) {
			continue
		}
		if d, ok := ParseDateCell(cell, year); ok {
			dates[c] = d
		}
	}
	return dates
}

// sortedColumns 按列索引排序，保证输出顺序稳定
func sortedColumns(dates map[int]time.Time) []int {
	cols := make([]int, 0, len(dates))
	for c := range dates {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	return cols
}
