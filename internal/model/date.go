package model

import "time"

// DateLayout 日期键格式
const DateLayout = "2006-01-02"

// CivilDate 取 t 在其自身时区下的年月日，返回对应的 UTC 零点
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today 按指定时区计算“今天”，返回 UTC 零点
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return CivilDate(now.In(loc))
}

// ParseDate 解析 YYYY-MM-DD 为 UTC 零点
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
