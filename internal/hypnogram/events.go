package hypnogram

import (
	"fmt"

	"wisefido-sleep-report/internal/label"
)

// ExtractEvents 从原始阶段序列提取事件（run-length 压缩）
// 每个相邻同值的最大连续段压缩为一个 StageEvent，保持时间顺序、
// 不重叠、首尾相接；相邻事件阶段一定不同
// 时间复杂度与序列长度成线性关系
func ExtractEvents(data []int) []StageEvent {
	if len(data) == 0 {
		return []StageEvent{}
	}

	events := []StageEvent{}
	runStart := 0
	for i := 1; i <= len(data); i++ {
		if i < len(data) && data[i] == data[runStart] {
			continue
		}
		runLength := i - runStart
		events = append(events, StageEvent{
			StartEpoch: runStart,
			Stage:      label.StageName(data[runStart]),
			Duration:   FormatDuration(runLength * EpochDuration),
		})
		runStart = i
	}

	return events
}

// Summarize 计算各阶段的总时长和占比，按显示名称首次出现顺序排列
// 按显示名称分组，不同的未知编码各自独立计数（Unknown(5) 和 Unknown(9) 不合并）
// 占比保留一位小数，采用 Go 默认的 round-half-to-even 舍入
func Summarize(data []int) StageSummary {
	if len(data) == 0 {
		return StageSummary{}
	}

	counts := make(map[string]int)
	order := make([]string, 0, 4)
	for _, code := range data {
		name := label.StageName(code)
		if _, seen := counts[name]; !seen {
			order = append(order, name)
		}
		counts[name]++
	}

	total := len(data)
	summary := make(StageSummary, 0, len(order))
	for _, name := range order {
		count := counts[name]
		percentage := float64(count) / float64(total) * 100
		summary = append(summary, SummaryEntry{
			Stage:      name,
			Duration:   FormatDuration(count * EpochDuration),
			Percentage: fmt.Sprintf("%.1f%%", percentage),
		})
	}

	return summary
}
