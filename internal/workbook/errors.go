package workbook

import (
	"errors"
	"fmt"
)

// ErrUnreadableWorkbook 上传文件无法作为电子表格解析
var ErrUnreadableWorkbook = errors.New("file is not a readable spreadsheet")

// ErrNoSheetsSelected 未选择任何工作表
var ErrNoSheetsSelected = errors.New("no sheets selected")

// ErrSheetNotFound 工作表不存在
var ErrSheetNotFound = errors.New("sheet not found")

// SheetError 读取单个工作表时的错误
type SheetError struct {
	SheetName string
	Err       error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("read sheet %q: %v", e.SheetName, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}
