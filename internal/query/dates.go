package query

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("日期格式错误")

// ParseDay 解析日期，返回该日在 UTC 下的起止时间（毫秒精度）
// 支持 2006-01-02 和 RFC3339，RFC3339 取其 UTC 日期
func ParseDay(raw string) (start, end time.Time, err error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidDate
		}
	}
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	end = start.Add(24*time.Hour - time.Millisecond)
	return start, end, nil
}

// MonthRange 返回某年某月在 UTC 下的起止时间
func MonthRange(year int, month time.Month) (start, end time.Time) {
	start = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}

// parseInstant 解析过滤值中的时间
// 纯日期按整天处理，RFC3339 按精确时刻处理
func parseInstant(raw string) (start, end time.Time, err error) {
	if t, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
		return t.UTC(), t.UTC(), nil
	}
	return ParseDay(raw)
}
