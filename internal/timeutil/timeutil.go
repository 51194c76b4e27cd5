// Package timeutil 日期时间工具：ISO-8601 解析、巴黎时区格式化、按天偏移
package timeutil

import (
	"fmt"
	"strings"
	"sync"
	"time"

	// 精简镜像里可能没有系统时区数据库
	_ "time/tzdata"
)

// CanonicalLayout Renault API 使用的 UTC 时间格式
const CanonicalLayout = "2006-01-02T15:04:05Z"

const naiveLayout = "2006-01-02T15:04:05.999999999"

// 星期缩写（周一为一周开始）
var weekdays = map[time.Weekday]string{
	time.Monday:    "Lun.",
	time.Tuesday:   "Mar.",
	time.Wednesday: "Mer.",
	time.Thursday:  "Jeu.",
	time.Friday:    "Ven.",
	time.Saturday:  "Sam.",
	time.Sunday:    "Dim.",
}

var (
	parisOnce sync.Once
	paris     *time.Location
)

// Paris 返回 Europe/Paris 时区
func Paris() *time.Location {
	parisOnce.Do(func() {
		loc, err := time.LoadLocation("Europe/Paris")
		if err != nil {
			// tzdata 已内嵌，这里不应失败
			loc = time.FixedZone("CET", 3600)
		}
		paris = loc
	})
	return paris
}

// FormatError 时间字符串格式错误
type FormatError struct {
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid timestamp %q: %v", e.Value, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// ParseInstant 解析 ISO-8601 时间，支持 "Z" 后缀和数字时区偏移
func ParseInstant(s string) (time.Time, error) {
	value := strings.TrimSpace(s)
	if value == "" {
		return time.Time{}, &FormatError{Value: s, Err: fmt.Errorf("empty value")}
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		// 没有时区信息时按 UTC 处理
		naive, naiveErr := time.Parse(naiveLayout, value)
		if naiveErr != nil {
			return time.Time{}, &FormatError{Value: s, Err: err}
		}
		t = naive
	}
	return t.UTC(), nil
}

// FormatInstant 格式化为 UTC "Z" 形式
func FormatInstant(t time.Time) string {
	return t.UTC().Format(CanonicalLayout)
}

// FormatLocal 转换为巴黎时间，格式 "Lun. 04/08 à 14h24:06"
func FormatLocal(t time.Time) string {
	local := t.In(Paris())
	return weekdays[local.Weekday()] + " " + local.Format("02/01 à 15h04:05")
}

// FormatDateTime 转换为巴黎时间，格式 "04/08/2025 à 14:24:06"
func FormatDateTime(t time.Time) string {
	return t.In(Paris()).Format("02/01/2006 à 15:04:05")
}

// Shift 偏移 n 天（UTC 下等于 n*24h）
func Shift(t time.Time, n int) time.Time {
	return t.UTC().AddDate(0, 0, n)
}

// ShiftDays 偏移 ISO-8601 字符串 n 天，返回规范的 UTC 字符串
func ShiftDays(s string, n int) (string, error) {
	t, err := ParseInstant(s)
	if err != nil {
		return "", err
	}
	return FormatInstant(Shift(t, n)), nil
}
