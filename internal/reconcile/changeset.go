package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"broadoak/internal/model"
)

// ChangeKind 班次变更类型
type ChangeKind string

const (
	ChangeCreated   ChangeKind = "created"
	ChangeUpdated   ChangeKind = "updated"
	ChangeDeleted   ChangeKind = "deleted"
	ChangeUnchanged ChangeKind = "unchanged"
)

// ChangeSet 单个班次前后状态的差异
type ChangeSet struct {
	Kind    ChangeKind   `json:"kind"`
	ShiftID string       `json:"shiftId"`
	Fields  []string     `json:"fields,omitempty"`
	Before  *model.Shift `json:"before,omitempty"`
	After   *model.Shift `json:"after,omitempty"`
}

// watched 参与差异比较与签名的字段
type watched struct {
	Date      string            `json:"date"`
	UserID    string            `json:"userId"`
	Address   string            `json:"address"`
	ShortCode string            `json:"shortCode"`
	Task      string            `json:"task"`
	Manager   string            `json:"manager"`
	Type      model.ShiftType   `json:"type"`
	Status    model.ShiftStatus `json:"status"`
}

func watch(s *model.Shift) watched {
	return watched{
		Date:      s.Date.UTC().Format(model.DateLayout),
		UserID:    s.UserID,
		Address:   s.Address,
		ShortCode: s.ShortCode,
		Task:      s.Task,
		Manager:   s.Manager,
		Type:      s.Type,
		Status:    s.Status,
	}
}

// Diff 比较班次前后状态；两者皆为 nil 时视为未变化
func Diff(before, after *model.Shift) ChangeSet {
	switch {
	case before == nil && after == nil:
		return ChangeSet{Kind: ChangeUnchanged}
	case before == nil:
		return ChangeSet{Kind: ChangeCreated, ShiftID: after.ID, After: after}
	case after == nil:
		return ChangeSet{Kind: ChangeDeleted, ShiftID: before.ID, Before: before}
	}

	b, a := watch(before), watch(after)
	var fields []string
	add := func(name string, changed bool) {
		if changed {
			fields = append(fields, name)
		}
	}
	add("date", b.Date != a.Date)
	add("userId", b.UserID != a.UserID)
	add("address", b.Address != a.Address)
	add("shortCode", b.ShortCode != a.ShortCode)
	add("task", b.Task != a.Task)
	add("manager", b.Manager != a.Manager)
	add("type", b.Type != a.Type)
	add("status", b.Status != a.Status)

	id := after.ID
	if id == "" {
		id = before.ID
	}
	if len(fields) == 0 {
		return ChangeSet{Kind: ChangeUnchanged, ShiftID: id, Before: before, After: after}
	}
	return ChangeSet{Kind: ChangeUpdated, ShiftID: id, Fields: fields, Before: before, After: after}
}

// Signature 稳定的变更签名，相同变更得到相同签名，用于去重
func (c ChangeSet) Signature() string {
	var sb strings.Builder
	sb.WriteString(string(c.Kind))
	sb.WriteByte('|')
	sb.WriteString(c.ShiftID)
	sb.WriteByte('|')
	sb.WriteString(strings.Join(c.Fields, ","))
	for _, s := range []*model.Shift{c.Before, c.After} {
		sb.WriteByte('|')
		if s == nil {
			continue
		}
		// 结构体字段顺序固定，序列化结果稳定
		raw, _ := json.Marshal(watch(s))
		sb.Write(raw)
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// FromOp 由一次已提交的批量操作生成变更
func FromOp(op model.ShiftOp) ChangeSet {
	switch op.Kind {
	case model.OpCreate:
		s := op.Shift
		return Diff(nil, &s)
	case model.OpDelete:
		s := op.Shift
		return Diff(&s, nil)
	default:
		if op.Update == nil {
			return ChangeSet{Kind: ChangeUnchanged, ShiftID: op.Shift.ID}
		}
		before := op.Update.Before
		after := op.Update.Apply(before)
		return Diff(&before, &after)
	}
}
