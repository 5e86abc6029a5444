package parser

import (
	"regexp"
	"strings"

	"broadoak/internal/model"
)

var (
	reStreetWord = regexp.MustCompile(`(?i)\b(road|rd|street|st|avenue|ave|lane|ln|close|drive|dr|way|court|ct|crescent|cres|place|pl|grove|gardens|gdns|terrace|hill|park|square|sq|walk|view|mews|row|green|parade|rise|estate|house|farm|cottage)\b`)
	rePostcode   = regexp.MustCompile(`(?i)\b[A-Z]{1,2}\d[A-Z\d]?\s*\d[A-Z]{2}\b`)
	reAddrLabel  = regexp.MustCompile(`(?i)^\s*(site\s+)?address\b\s*[:\-]?\s*`)
	reShortCode  = regexp.MustCompile(`^[A-Za-z]{1,3}-?\d{2,}$`)
)

// locateAddress 在 [from, limit) 行内定位地址，返回地址、短代码与所在行；未找到时 row=-1
func locateAddress(grid model.Grid, from, limit int, layout AddressLayout) (address, shortCode string, row int) {
	switch layout {
	case LayoutLabel:
		return labelAddress(grid, from, limit)
	default:
		return keywordAddress(grid, from, limit)
	}
}

// keywordAddress 第一个含街道类词汇或邮编的 A 列单元格为地址首行
func keywordAddress(grid model.Grid, from, limit int) (string, string, int) {
	for r := from; r < limit; r++ {
		cell := grid.At(r, 0)
		if cell.Kind != model.CellText {
			continue
		}
		text := NormalizeSpace(cell.Text)
		if !looksLikeAddress(text) {
			continue
		}
		lines := append([]string{text}, continuationLines(grid, r+1, limit)...)
		address, code := splitShortCode(lines)
		return address, code, r
	}
	return "", "", -1
}

// labelAddress 以 "Address" 标签行定位：标签后的文本，否则同行 B 列，否则下一行 A 列
func labelAddress(grid model.Grid, from, limit int) (string, string, int) {
	for r := from; r < limit; r++ {
		cell := grid.At(r, 0)
		if cell.Kind != model.CellText {
			continue
		}
		text := NormalizeSpace(cell.Text)
		loc := reAddrLabel.FindStringIndex(text)
		if loc == nil {
			continue
		}

		first := strings.TrimSpace(text[loc[1]:])
		next := r + 1
		if first == "" {
			if b := grid.At(r, 1); !b.IsEmpty() {
				first = NormalizeSpace(b.String())
			} else if a := grid.At(r+1, 0); a.Kind == model.CellText && !grid.RowHasDataAfter(r+1, 0) {
				first = NormalizeSpace(a.Text)
				next = r + 2
			}
		}
		if first == "" {
			return "", "", -1
		}
		lines := append([]string{first}, continuationLines(grid, next, limit)...)
		address, code := splitShortCode(lines)
		return address, code, r
	}
	return "", "", -1
}

func looksLikeAddress(text string) bool {
	return rePostcode.MatchString(text) || reStreetWord.MatchString(text)
}

// continuationLines 收集仅 A 列有内容的后续行，遇到 A 列以外有数据的行或空行即停止
func continuationLines(grid model.Grid, from, limit int) []string {
	var lines []string
	for r := from; r < limit; r++ {
		cell := grid.At(r, 0)
		if cell.IsEmpty() || grid.RowHasDataAfter(r, 0) {
			break
		}
		if cell.Kind == model.CellDate {
			break
		}
		lines = append(lines, NormalizeSpace(cell.String()))
	}
	return lines
}

// splitShortCode 地址首行开头形如代码（如 B123、B-4410）的片段拆为短代码
func splitShortCode(lines []string) (string, string) {
	if len(lines) == 0 {
		return "", ""
	}
	first := lines[0]
	code := ""
	if token, rest, ok := strings.Cut(first, " "); ok {
		token = strings.TrimRight(token, ",:;")
		rest = strings.TrimLeft(strings.TrimSpace(rest), "-,:; ")
		if reShortCode.MatchString(token) && rest != "" {
			code = strings.ToUpper(token)
			first = rest
		}
	}

	parts := make([]string, 0, len(lines))
	if first != "" {
		parts = append(parts, first)
	}
	for _, l := range lines[1:] {
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, ", "), code
}
