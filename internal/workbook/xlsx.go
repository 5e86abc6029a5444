package workbook

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"broadoak/internal/model"
)

// 内置日期数字格式编号
var builtinDateNumFmts = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

type styleInfo struct {
	isDate bool
	fill   string
}

type xlsxSource struct {
	file     *excelize.File
	date1904 bool
	styles   map[int]styleInfo
}

func openXLSX(data []byte) (*xlsxSource, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	src := &xlsxSource{file: f, styles: make(map[int]styleInfo)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		src.date1904 = *props.Date1904
	}
	return src, nil
}

func (s *xlsxSource) sheetNames() []string {
	return s.file.GetSheetList()
}

func (s *xlsxSource) close() error {
	return s.file.Close()
}

func (s *xlsxSource) grid(sheet string) (model.Grid, error) {
	rows, err := s.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	grid := make(model.Grid, len(rows))
	for r, row := range rows {
		cells := make([]model.Cell, len(row))
		for c, raw := range row {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			cells[c] = s.cell(sheet, name, raw)
		}
		grid[r] = cells
	}
	return grid, nil
}

func (s *xlsxSource) cell(sheet, name, raw string) model.Cell {
	style := s.style(sheet, name)

	var cell model.Cell
	typ, _ := s.file.GetCellType(sheet, name)
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeBool,
		excelize.CellTypeError, excelize.CellTypeFormula:
		cell = model.TextCell(raw)
	case excelize.CellTypeDate:
		if t, ok := parseISO(raw); ok {
			cell = model.DateCell(t)
		} else {
			cell = model.TextCell(raw)
		}
	default:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		switch {
		case err != nil:
			cell = model.TextCell(raw)
		case style.isDate:
			t, err := excelize.ExcelDateToTime(v, s.date1904)
			if err != nil {
				cell = model.NumberCell(v)
			} else {
				cell = model.DateCell(model.CivilDate(t))
			}
		default:
			cell = model.NumberCell(v)
		}
	}
	cell.Fill = style.fill
	return cell
}

// style 读取并缓存单元格样式中与导入相关的部分
func (s *xlsxSource) style(sheet, name string) styleInfo {
	idx, err := s.file.GetCellStyle(sheet, name)
	if err != nil || idx == 0 {
		return styleInfo{}
	}
	if info, ok := s.styles[idx]; ok {
		return info
	}

	var info styleInfo
	st, err := s.file.GetStyle(idx)
	if err == nil && st != nil {
		info.isDate = builtinDateNumFmts[st.NumFmt]
		if st.CustomNumFmt != nil {
			info.isDate = isDateFormatCode(*st.CustomNumFmt)
		}
		if st.Fill.Pattern == 1 && len(st.Fill.Color) > 0 {
			info.fill = NormalizeColor(st.Fill.Color[0])
		}
	}
	s.styles[idx] = info
	return info
}

// isDateFormatCode 判断自定义数字格式是否为日期格式
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	stripped := b.String()
	return strings.ContainsAny(stripped, "dy")
}

// NormalizeColor 颜色统一为大写 RRGGBB（去掉 # 与 alpha 前缀）
func NormalizeColor(c string) string {
	c = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(c), "#"))
	if len(c) == 8 {
		c = c[2:]
	}
	return c
}

func parseISO(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return model.CivilDate(t), true
		}
	}
	return time.Time{}, false
}
