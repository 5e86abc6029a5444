package parser

import (
	"time"

	"broadoak/internal/model"
)

// AddressLayout 地址定位方式
type AddressLayout string

const (
	// LayoutKeyword 通过街道类词汇或邮编识别 A 列地址
	LayoutKeyword AddressLayout = "keyword"
	// LayoutLabel 通过显式的 "Address" 标签行识别地址
	LayoutLabel AddressLayout = "label"
)

// Options 排班表解析选项
type Options struct {
	Sentinel          string
	AddressLayout     AddressLayout
	NotApplicableFill string    // RRGGBB
	Today             time.Time // UTC 零点；早于该日期的班次不导入
}

// Year “DD-Mon” 形式日期所属的年份
func (o Options) Year() int {
	return o.Today.Year()
}

// Block 一个工单块（JOB MANAGER 哨兵行开始，到下一个哨兵行或表尾结束）
type Block struct {
	StartRow   int // 0-based，哨兵所在行
	EndRow     int // 0-based，不含
	Label      string
	Manager    string
	Address    string
	ShortCode  string
	AddressRow int
	DateRow    int
	Dates      map[int]time.Time // 列索引 -> 日期
}

// DisplayRow 面向操作员的 1-based 行号
func (b Block) DisplayRow() int {
	return b.StartRow + 1
}

// SheetResult 单个工作表的解析结果
type SheetResult struct {
	Sheet      string          `json:"sheet"`
	Blocks     int             `json:"blocks"`
	Skipped    int             `json:"skippedBlocks"`
	Candidates []model.Shift   `json:"candidates"`
	Failures   []model.Failure `json:"failures"`
}
