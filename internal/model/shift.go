package model

import "time"

// ShiftType 班次类型
type ShiftType string

const (
	ShiftMorning   ShiftType = "am"
	ShiftAfternoon ShiftType = "pm"
	ShiftAllDay    ShiftType = "all-day"
)

// ShiftStatus 班次状态
type ShiftStatus string

const (
	StatusPendingConfirmation ShiftStatus = "pending-confirmation"
	StatusConfirmed           ShiftStatus = "confirmed"
	StatusOnSite              ShiftStatus = "on-site"
	StatusCompleted           ShiftStatus = "completed"
	StatusIncomplete          ShiftStatus = "incomplete"
	StatusRejected            ShiftStatus = "rejected"
)

// DefaultProtectedStatuses 导入永远不会自动修改或删除的状态
func DefaultProtectedStatuses() []ShiftStatus {
	return []ShiftStatus{StatusConfirmed, StatusOnSite, StatusCompleted, StatusIncomplete}
}

// StatusSet 状态集合
type StatusSet map[ShiftStatus]bool

// NewStatusSet 由状态列表构建集合
func NewStatusSet(statuses []ShiftStatus) StatusSet {
	set := make(StatusSet, len(statuses))
	for _, st := range statuses {
		set[st] = true
	}
	return set
}

// Has 是否包含该状态
func (s StatusSet) Has(st ShiftStatus) bool {
	return s[st]
}

// User 用户目录条目
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Shift 班次记录；导入解析出的候选班次 ID 与 Status 为空
type Shift struct {
	ID        string      `json:"id,omitempty"`
	UserID    string      `json:"userId"`
	UserName  string      `json:"userName,omitempty"`
	Date      time.Time   `json:"date"` // UTC 零点
	Address   string      `json:"address"`
	ShortCode string      `json:"shortCode,omitempty"`
	Task      string      `json:"task"`
	Manager   string      `json:"manager"`
	Type      ShiftType   `json:"type"`
	Status    ShiftStatus `json:"status,omitempty"`

	// 以下字段仅在解析阶段使用
	RawName    string `json:"rawName,omitempty"`
	SourceCell string `json:"sourceCell,omitempty"`
	Sheet      string `json:"sheet,omitempty"`
}

// ShiftUpdate 对已有班次的字段变更，仅包含发生变化的字段
type ShiftUpdate struct {
	ID        string     `json:"id"`
	Manager   *string    `json:"manager,omitempty"`
	ShortCode *string    `json:"shortCode,omitempty"`
	Type      *ShiftType `json:"type,omitempty"`

	Before Shift `json:"before"`
}

// Fields 返回发生变更的字段名
func (u ShiftUpdate) Fields() []string {
	var fields []string
	if u.Manager != nil {
		fields = append(fields, "manager")
	}
	if u.ShortCode != nil {
		fields = append(fields, "shortCode")
	}
	if u.Type != nil {
		fields = append(fields, "type")
	}
	return fields
}

// Apply 将变更应用到班次副本上
func (u ShiftUpdate) Apply(s Shift) Shift {
	if u.Manager != nil {
		s.Manager = *u.Manager
	}
	if u.ShortCode != nil {
		s.ShortCode = *u.ShortCode
	}
	if u.Type != nil {
		s.Type = *u.Type
	}
	return s
}

// OpKind 批量写入操作类型
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// ShiftOp 批量写入中的单个操作
type ShiftOp struct {
	Kind   OpKind       `json:"kind"`
	Shift  Shift        `json:"shift"`            // create: 待创建班次；delete: 被删除班次
	Update *ShiftUpdate `json:"update,omitempty"` // update
}

// BatchResult 一批写入的结果
// Skipped 为写入时发现目标班次已进入受保护状态而放弃的更新/删除
type BatchResult struct {
	Applied []ShiftOp
	Skipped []ShiftOp
}

// TargetID 操作作用的班次 ID
func (op ShiftOp) TargetID() string {
	if op.Kind == OpUpdate && op.Update != nil {
		return op.Update.ID
	}
	return op.Shift.ID
}

// Failure 导入失败记录，始终呈现给操作员
type Failure struct {
	Date     *time.Time `json:"date,omitempty"`
	Project  string     `json:"project"`
	CellText string     `json:"cellText"`
	Reason   string     `json:"reason"`
	Sheet    string     `json:"sheet"`
}
