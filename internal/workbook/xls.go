package workbook

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/extrame/xls"

	"broadoak/internal/model"
)

// xlsSource 旧版二进制 .xls 工作簿；该格式不保留填充颜色
type xlsSource struct {
	book   *xls.WorkBook
	sheets map[string]int
	names  []string
}

func openXLS(data []byte) (*xlsSource, error) {
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fmt.Errorf("empty xls workbook")
	}

	src := &xlsSource{book: book, sheets: make(map[string]int)}
	for i := 0; i < book.NumSheets(); i++ {
		ws := book.GetSheet(i)
		if ws == nil {
			continue
		}
		src.sheets[ws.Name] = i
		src.names = append(src.names, ws.Name)
	}
	return src, nil
}

func (s *xlsSource) sheetNames() []string {
	return s.names
}

func (s *xlsSource) close() error {
	return nil
}

func (s *xlsSource) grid(sheet string) (model.Grid, error) {
	idx, ok := s.sheets[sheet]
	if !ok {
		return nil, ErrSheetNotFound
	}
	ws := s.book.GetSheet(idx)
	if ws == nil {
		return nil, ErrSheetNotFound
	}

	grid := make(model.Grid, int(ws.MaxRow)+1)
	for r := 0; r <= int(ws.MaxRow); r++ {
		row := sheetRow(ws, r)
		if row == nil {
			continue
		}
		// 仅由单元格记录生成的行没有 ROW 记录，LastCol 恒为 0，需按 BIFF8 列上限扫描
		last := row.LastCol()
		if last < xlsMaxCols {
			last = xlsMaxCols
		}
		cells := make([]model.Cell, last)
		width := 0
		for c := row.FirstCol(); c < last; c++ {
			cells[c] = xlsCell(row.Col(c))
			if !cells[c].IsEmpty() {
				width = c + 1
			}
		}
		grid[r] = cells[:width]
	}
	return grid, nil
}

// xlsMaxCols BIFF8 工作表的列数上限
const xlsMaxCols = 256

// sheetRow 取出一行；库在行不存在时会对空指针赋值，这里转换为 nil
func sheetRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

// xlsCell 将 xls 单元格的格式化文本还原为变体值
func xlsCell(raw string) model.Cell {
	text := strings.TrimSpace(raw)
	if text == "" {
		return model.Cell{}
	}
	if t, ok := parseISO(text); ok {
		return model.DateCell(t)
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return model.NumberCell(v)
	}
	return model.TextCell(raw)
}
