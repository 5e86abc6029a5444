package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"broadoak/internal/model"
)

var (
	reWeekday  = regexp.MustCompile(`(?i)\b(mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	reMonth    = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec|january|february|march|april|june|july|august|september|october|november|december)\b`)
	reDayMonth = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?[\s\-/.]*(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`)
	reDMY      = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})\b`)
	reISODate  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

var monthsByAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// excelEpoch Excel 1900 日期系统的序列号零点
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// 表头中视为 Excel 日期序列号的取值范围（约 1954 年至 2119 年）
const (
	minSerial = 20000
	maxSerial = 80000
)

// IsDateLike 单元格是否“看起来像日期”（原生日期，或包含星期/月份缩写、数字日期的文本）
func IsDateLike(c model.Cell) bool {
	switch c.Kind {
	case model.CellDate:
		return true
	case model.CellNumber:
		return c.Number >= minSerial && c.Number < maxSerial
	case model.CellText:
		t := c.Text
		return reWeekday.MatchString(t) || reMonth.MatchString(t) || reDMY.MatchString(t) || reISODate.MatchString(t)
	default:
		return false
	}
}

// ParseDateCell 尽力将单元格解析为日历日期（UTC 零点）
// “DD-Mon” / “Weekday DD-Mon” 形式的文本按 year 所在年份解析
func ParseDateCell(c model.Cell, year int) (time.Time, bool) {
	switch c.Kind {
	case model.CellDate:
		return model.CivilDate(c.Date), true
	case model.CellNumber:
		return SerialToDate(c.Number)
	case model.CellText:
		return ParseDateText(c.Text, year)
	default:
		return time.Time{}, false
	}
}

// SerialToDate Excel 序列号转日期（1899-12-30 纪元）
func SerialToDate(v float64) (time.Time, bool) {
	if v < minSerial || v >= maxSerial {
		return time.Time{}, false
	}
	return excelEpoch.AddDate(0, 0, int(math.Floor(v))), true
}

// ParseDateText 解析文本日期
func ParseDateText(text string, year int) (time.Time, bool) {
	text = NormalizeSpace(text)
	if m := reISODate.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return civil(y, time.Month(mo), d)
	}
	if m := reDMY.FindStringSubmatch(text); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if y < 100 {
			y += 2000
		}
		return civil(y, time.Month(mo), d)
	}
	if m := reDayMonth.FindStringSubmatch(text); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, ok := monthsByAbbrev[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, false
		}
		return civil(year, mo, d)
	}
	return time.Time{}, false
}

// civil 构造日期并拒绝溢出（如 31-Jun）
func civil(y int, m time.Month, d int) (time.Time, bool) {
	if m < time.January || m > time.December || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Month() != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
