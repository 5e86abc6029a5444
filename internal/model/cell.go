package model

import (
	"strconv"
	"strings"
	"time"
)

// CellKind 单元格值类型
type CellKind int

const (
	CellEmpty  CellKind = iota // 空单元格
	CellText                   // 文本
	CellNumber                 // 数值
	CellDate                   // 日期（原生日期或按日期格式存储的序列号）
)

// Cell 工作表单元格（闭合变体：Empty | Text | Number | Date）
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Date   time.Time
	// Fill 纯色背景填充（RRGGBB，大写），无填充时为空
	Fill string
}

// TextCell 构造文本单元格，空白文本视为空单元格
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell 构造数值单元格
func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

// DateCell 构造日期单元格
func DateCell(t time.Time) Cell {
	return Cell{Kind: CellDate, Date: t}
}

// IsEmpty 是否为空
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// String 单元格的文本形式
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellDate:
		return c.Date.Format("2006-01-02")
	default:
		return ""
	}
}

// Grid 单个工作表的单元格网格 [row][col]
type Grid [][]Cell

// At 越界安全的取值
func (g Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g) {
		return Cell{}
	}
	r := g[row]
	if col < 0 || col >= len(r) {
		return Cell{}
	}
	return r[col]
}

// RowHasDataAfter 判断该行在 col 之后是否还有非空单元格
func (g Grid) RowHasDataAfter(row, col int) bool {
	if row < 0 || row >= len(g) {
		return false
	}
	for i := col + 1; i < len(g[row]); i++ {
		if !g[row][i].IsEmpty() {
			return true
		}
	}
	return false
}
