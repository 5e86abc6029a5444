package reconcile

import (
	"regexp"
	"strings"
	"time"

	"broadoak/internal/model"
)

var reKeyStrip = regexp.MustCompile(`[^a-z0-9]+`)

// keyPart 小写并去除非字母数字字符，使大小写、标点、空白差异不影响键
func keyPart(s string) string {
	return reKeyStrip.ReplaceAllString(strings.ToLower(s), "")
}

// Key 对账键：日期|用户|地址|任务
func Key(s model.Shift) string {
	return strings.Join([]string{
		s.Date.UTC().Format(model.DateLayout),
		s.UserID,
		keyPart(s.Address),
		keyPart(s.Task),
	}, "|")
}

// Window 候选班次覆盖的日期范围（含两端）
func Window(parsed []model.Shift) (from, to time.Time, ok bool) {
	for i, s := range parsed {
		if i == 0 || s.Date.Before(from) {
			from = s.Date
		}
		if i == 0 || s.Date.After(to) {
			to = s.Date
		}
	}
	return from, to, len(parsed) > 0
}

// Result 对账结果
type Result struct {
	Creates []model.Shift       `json:"creates"`
	Updates []model.ShiftUpdate `json:"updates"`
	Deletes []model.Shift       `json:"deletes"`

	Duplicates int `json:"duplicates"` // 解析阶段按键去重丢弃的候选数
	Unchanged  int `json:"unchanged"`
	Protected  int `json:"protected"` // 因状态受保护而保持不变的已有班次数

	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Empty 无任何写操作
func (r *Result) Empty() bool {
	return len(r.Creates) == 0 && len(r.Updates) == 0 && len(r.Deletes) == 0
}

// Total 写操作总数
func (r *Result) Total() int {
	return len(r.Creates) + len(r.Updates) + len(r.Deletes)
}

// Reconcile 计算使已有班次与解析结果一致所需的最少创建/更新/删除操作
// existing 中超出解析日期范围的记录被忽略；受保护状态的班次永不更新或删除
func Reconcile(parsed, existing []model.Shift, protected []model.ShiftStatus) Result {
	var res Result
	from, to, ok := Window(parsed)
	if !ok {
		return res
	}
	res.From, res.To = from, to

	isProtected := model.NewStatusSet(protected)

	wanted := make(map[string]model.Shift, len(parsed))
	order := make([]string, 0, len(parsed))
	for _, s := range parsed {
		k := Key(s)
		if _, dup := wanted[k]; dup {
			res.Duplicates++
			continue
		}
		wanted[k] = s
		order = append(order, k)
	}

	stored := make(map[string]model.Shift, len(existing))
	var extras []model.Shift
	var storedOrder []string
	for _, s := range existing {
		if s.Date.Before(from) || s.Date.After(to) {
			continue
		}
		k := Key(s)
		if _, dup := stored[k]; dup {
			extras = append(extras, s)
			continue
		}
		stored[k] = s
		storedOrder = append(storedOrder, k)
	}

	for _, k := range order {
		p := wanted[k]
		cur, found := stored[k]
		if !found {
			if p.Status == "" {
				p.Status = model.StatusPendingConfirmation
			}
			res.Creates = append(res.Creates, p)
			continue
		}
		upd, changed := diffFields(cur, p)
		switch {
		case isProtected.Has(cur.Status):
			res.Protected++
		case changed:
			res.Updates = append(res.Updates, upd)
		default:
			res.Unchanged++
		}
	}

	for _, k := range storedOrder {
		if _, keep := wanted[k]; keep {
			continue
		}
		s := stored[k]
		if isProtected.Has(s.Status) {
			res.Protected++
			continue
		}
		res.Deletes = append(res.Deletes, s)
	}
	for _, s := range extras {
		if isProtected.Has(s.Status) {
			res.Protected++
			continue
		}
		res.Deletes = append(res.Deletes, s)
	}
	return res
}

// diffFields 比较可对账字段（经理、短代码、班次类型）
func diffFields(cur, next model.Shift) (model.ShiftUpdate, bool) {
	upd := model.ShiftUpdate{ID: cur.ID, Before: cur}
	if cur.Manager != next.Manager {
		v := next.Manager
		upd.Manager = &v
	}
	if cur.ShortCode != next.ShortCode {
		v := next.ShortCode
		upd.ShortCode = &v
	}
	if cur.Type != next.Type {
		v := next.Type
		upd.Type = &v
	}
	return upd, len(upd.Fields()) > 0
}

// Operations 展开为顺序稳定的批量操作：创建、更新、删除
func (r *Result) Operations() []model.ShiftOp {
	ops := make([]model.ShiftOp, 0, r.Total())
	for _, s := range r.Creates {
		ops = append(ops, model.ShiftOp{Kind: model.OpCreate, Shift: s})
	}
	for i := range r.Updates {
		u := r.Updates[i]
		ops = append(ops, model.ShiftOp{Kind: model.OpUpdate, Shift: u.Apply(u.Before), Update: &u})
	}
	for _, s := range r.Deletes {
		ops = append(ops, model.ShiftOp{Kind: model.OpDelete, Shift: s})
	}
	return ops
}

// Chunk 按单批操作上限切分；limit<=0 时不切分
func Chunk(ops []model.ShiftOp, limit int) [][]model.ShiftOp {
	if len(ops) == 0 {
		return nil
	}
	if limit <= 0 || len(ops) <= limit {
		return [][]model.ShiftOp{ops}
	}
	chunks := make([][]model.ShiftOp, 0, (len(ops)+limit-1)/limit)
	for start := 0; start < len(ops); start += limit {
		end := start + limit
		if end > len(ops) {
			end = len(ops)
		}
		chunks = append(chunks, ops[start:end])
	}
	return chunks
}
