package model

import "time"

// ImportStatus 导入日志状态
type ImportStatus string

const (
	ImportPreview   ImportStatus = "preview"   // 试运行，尚未写入
	ImportCommitted ImportStatus = "committed" // 已提交
	ImportFailed    ImportStatus = "failed"    // 整体失败（文件不可读、提交失败）
)

// ImportLog 一次导入运行的记录
type ImportLog struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	FileHash    string       `json:"fileHash,omitempty"`
	Sheets      []string     `json:"sheets"`
	DryRun      bool         `json:"dryRun"`
	Status      ImportStatus `json:"status"`
	Creates     int          `json:"creates"`
	Updates     int          `json:"updates"`
	Deletes     int          `json:"deletes"`
	Failures    int          `json:"failures"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"startedAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// ShiftEvent 班次变更日志条目（按签名去重）
type ShiftEvent struct {
	ID        int64     `json:"id"`
	ImportID  string    `json:"importId"`
	ShiftID   string    `json:"shiftId"`
	Kind      string    `json:"kind"`
	Fields    []string  `json:"fields,omitempty"`
	Signature string    `json:"signature"`
	CreatedAt time.Time `json:"createdAt"`
}
