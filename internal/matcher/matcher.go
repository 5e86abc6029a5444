package matcher

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"broadoak/internal/model"
)

const (
	// maxDistance 候选被接受的最大编辑距离
	maxDistance = 3
	// minFuzzyLen 参与包含/编辑距离匹配的最短姓名；更短的只接受精确匹配
	minFuzzyLen = 3
)

var (
	reNonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)
	reSpaces   = regexp.MustCompile(`\s+`)
)

// Normalize 小写，仅保留 [a-z0-9 ]，并压缩空白
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = reSpaces.ReplaceAllString(s, " ")
	s = reNonAlnum.ReplaceAllString(s, "")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

type entry struct {
	user  model.User
	full  string
	first string
}

// Resolver 将排班表中的自由文本姓名映射到用户目录
type Resolver struct {
	entries []entry
}

// NewResolver 构建解析器；目录按用户 ID 排序，保证平局时结果确定
func NewResolver(users []model.User) *Resolver {
	sorted := make([]model.User, len(users))
	copy(sorted, users)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	entries := make([]entry, 0, len(sorted))
	for _, u := range sorted {
		full := Normalize(u.Name)
		if full == "" {
			continue
		}
		first, _, _ := strings.Cut(full, " ")
		entries = append(entries, entry{user: u, full: full, first: first})
	}
	return &Resolver{entries: entries}
}

// Len 目录中可参与匹配的用户数
func (r *Resolver) Len() int {
	return len(r.entries)
}

// Resolve 按固定顺序匹配：全名精确 → 名字精确 → 包含/编辑距离候选中距离最小者
// 少于 minFuzzyLen 个字符的姓名（如 "a"、"al"）不做模糊匹配
func (r *Resolver) Resolve(raw string) (model.User, bool) {
	name := Normalize(raw)
	if name == "" {
		return model.User{}, false
	}

	for _, e := range r.entries {
		if e.full == name {
			return e.user, true
		}
	}
	for _, e := range r.entries {
		if e.first == name {
			return e.user, true
		}
	}

	if len(name) < minFuzzyLen {
		return model.User{}, false
	}

	threshold := len(name) / 3
	if threshold < 1 {
		threshold = 1
	}

	best := -1
	bestDist := 0
	for i, e := range r.entries {
		d := distance(name, e)
		candidate := strings.Contains(e.full, name) || d <= threshold
		if !candidate {
			continue
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > maxDistance {
		return model.User{}, false
	}
	return r.entries[best].user, true
}

// distance 取与全名、名字两者中较小的编辑距离
func distance(name string, e entry) int {
	d := levenshtein.ComputeDistance(name, e.full)
	if e.first != e.full {
		if f := levenshtein.ComputeDistance(name, e.first); f < d {
			d = f
		}
	}
	return d
}

// ResolveShifts 为候选班次填充 UserID / UserName；无法匹配的姓名产生失败记录，不影响同一单元格内的其他姓名
func (r *Resolver) ResolveShifts(candidates []model.Shift) ([]model.Shift, []model.Failure) {
	resolved := make([]model.Shift, 0, len(candidates))
	var failures []model.Failure
	for _, s := range candidates {
		u, ok := r.Resolve(s.RawName)
		if !ok {
			d := s.Date
			failures = append(failures, model.Failure{
				Date:     &d,
				Project:  s.Address,
				CellText: s.SourceCell,
				Reason:   fmt.Sprintf("Could not find a user matching %q", s.RawName),
				Sheet:    s.Sheet,
			})
			continue
		}
		s.UserID = u.ID
		s.UserName = u.Name
		resolved = append(resolved, s)
	}
	return resolved, failures
}
