package hypnogram

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout 起止时间的固定文本格式
const TimeLayout = "2006-01-02 15:04:05"

// clockLayout 12 小时制显示格式（小时补零，大写 AM/PM）
const clockLayout = "03:04 PM"

// FormatDuration 将秒数渲染为省略零值的详细格式
//   - 0 -> "0s"
//   - 300 -> "5m"
//   - 3600 -> "1h"
//   - 3665 -> "1h 1m 5s"
//
// 秒数部分在时、分均为 0 时强制保留，小时长不会渲染成空串，
// 整时/整分时长也不会出现多余的 "0s"
func FormatDuration(seconds int) string {
	if seconds == 0 {
		return "0s"
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 || (hours == 0 && minutes == 0) {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}

	return strings.Join(parts, " ")
}

// ParseTime 解析 "YYYY-MM-DD HH:MM:SS" 格式的时间文本
// 空串或解析失败返回 (零值, false)，不向调用方抛错
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatTimeRange 渲染起止时间范围，如 "11:00 PM - 01:30 AM"
func FormatTimeRange(start, end time.Time) string {
	return start.Format(clockLayout) + " - " + end.Format(clockLayout)
}

// CalculateEndTime 根据开始时间和 epoch 数量计算结束时间
func CalculateEndTime(start time.Time, epochs int) time.Time {
	return start.Add(time.Duration(epochs*EpochDuration) * time.Second)
}
