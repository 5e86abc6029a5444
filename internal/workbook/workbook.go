package workbook

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"broadoak/internal/model"
)

// Format 工作簿格式
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

var (
	zipMagic  = []byte{0x50, 0x4B, 0x03, 0x04}
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// source 不同格式的读取实现
type source interface {
	sheetNames() []string
	grid(sheet string) (model.Grid, error)
	close() error
}

// Workbook 已解码的工作簿
type Workbook struct {
	format Format
	src    source
}

// SheetGrid 单个工作表的网格
type SheetGrid struct {
	Name string
	Grid model.Grid
}

// Open 解码上传的二进制工作簿；无法解析时返回 ErrUnreadableWorkbook
func Open(r io.Reader, filename string) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnreadableWorkbook)
	}

	format := DetectFormat(filename, data)
	var src source
	switch format {
	case FormatXLS:
		src, err = openXLS(data)
	default:
		src, err = openXLSX(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	return &Workbook{format: format, src: src}, nil
}

// DetectFormat 优先按扩展名判断格式，其次按文件头魔数
func DetectFormat(filename string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		return FormatXLS
	case ".xlsx", ".xlsm":
		return FormatXLSX
	}
	if bytes.HasPrefix(data, ole2Magic) {
		return FormatXLS
	}
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	return FormatXLSX
}

// Format 工作簿格式
func (w *Workbook) Format() Format {
	return w.format
}

// SheetNames 工作表名称列表（供操作员选择）
func (w *Workbook) SheetNames() []string {
	return w.src.sheetNames()
}

// Grid 读取单个工作表的网格
func (w *Workbook) Grid(sheet string) (model.Grid, error) {
	if !w.hasSheet(sheet) {
		return nil, &SheetError{SheetName: sheet, Err: ErrSheetNotFound}
	}
	g, err := w.src.grid(sheet)
	if err != nil {
		return nil, &SheetError{SheetName: sheet, Err: err}
	}
	return g, nil
}

// Grids 按调用方选择的顺序读取多个工作表
func (w *Workbook) Grids(sheets []string) ([]SheetGrid, error) {
	if len(sheets) == 0 {
		return nil, ErrNoSheetsSelected
	}
	out := make([]SheetGrid, 0, len(sheets))
	for _, name := range sheets {
		g, err := w.Grid(name)
		if err != nil {
			return nil, err
		}
		out = append(out, SheetGrid{Name: name, Grid: g})
	}
	return out, nil
}

// Close 释放底层资源
func (w *Workbook) Close() error {
	return w.src.close()
}

func (w *Workbook) hasSheet(sheet string) bool {
	for _, name := range w.src.sheetNames() {
		if name == sheet {
			return true
		}
	}
	return false
}
