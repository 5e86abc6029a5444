package parser

import (
	"regexp"
	"strings"
)

var (
	reWhitespace = regexp.MustCompile(`\s+`)
	reAMToken    = regexp.MustCompile(`(?i)(^|[^a-z])(am|a\.m\.)($|[^a-z])`)
	rePMToken    = regexp.MustCompile(`(?i)(^|[^a-z])(pm|p\.m\.)($|[^a-z])`)
)

// NormalizeSpace 去除首尾空白并将内部连续空白（含换行、不间断空格）压缩为单个空格
func NormalizeSpace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// NormalizeUpper 规范化后转为大写，用于哨兵/标签匹配
func NormalizeUpper(s string) string {
	return strings.ToUpper(NormalizeSpace(s))
}

// SplitNames 将姓名部分按 &、逗号、+ 拆分为单个姓名
func SplitNames(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '&' || r == ',' || r == '+'
	})
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}

// SplitTaskNames 按最后一个 "-" 拆分为任务与姓名部分；没有分隔符时 ok=false
func SplitTaskNames(text string) (task, names string, ok bool) {
	idx := strings.LastIndex(text, "-")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+1:]), true
}
