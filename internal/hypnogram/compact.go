package hypnogram

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatReportCompact 将报告渲染为紧凑 JSON 文本
//
// 整体采用 2 空格缩进的结构化排版，但对两个字段做特殊处理以保证可读性：
//   - "stages" 数组：每个 [index, stage, duration] 三元组占一行，不逐元素换行
//   - "sleep_stages_by_hour" 数组：每个小时分组展开为多行
//     （hour_range 单独一行，stages 沿用上面的单行三元组规则）
//
// 报告结构是已知且固定的，这里用显式的逐字段写出器而不是反射式的
// 通用美化输出。输出是合法 JSON，可重新解析回等价的结构
func FormatReportCompact(r *Report) string {
	var b strings.Builder

	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"sleep_time\": %s,\n", jsonString(r.SleepTime))
	fmt.Fprintf(&b, "  \"duration\": %s,\n", jsonString(r.Duration))

	writeSummary(&b, r.SleepStageSummary)
	writeHourGroups(&b, r.SleepStagesByHour)

	b.WriteString("}")
	return b.String()
}

// writeSummary 渲染 sleep_stage_summary 对象，每个阶段一行
// [duration, percentage] 对数组行内展开
func writeSummary(b *strings.Builder, summary StageSummary) {
	if len(summary) == 0 {
		b.WriteString("  \"sleep_stage_summary\": {},\n")
		return
	}

	b.WriteString("  \"sleep_stage_summary\": {\n")
	for i, entry := range summary {
		comma := ","
		if i == len(summary)-1 {
			comma = ""
		}
		fmt.Fprintf(b, "    %s: [%s, %s]%s\n",
			jsonString(entry.Stage), jsonString(entry.Duration), jsonString(entry.Percentage), comma)
	}
	b.WriteString("  },\n")
}

// writeHourGroups 渲染 sleep_stages_by_hour 数组，每个分组展开为多行
func writeHourGroups(b *strings.Builder, groups []HourGroup) {
	b.WriteString("  \"sleep_stages_by_hour\": [\n")
	for i, group := range groups {
		b.WriteString("    {\n")
		fmt.Fprintf(b, "      \"hour_range\": %s,\n", jsonString(group.HourRange))
		b.WriteString("      \"stages\": [\n")
		for j, row := range group.Stages {
			comma := ","
			if j == len(group.Stages)-1 {
				comma = ""
			}
			fmt.Fprintf(b, "        %s%s\n", jsonStageRow(row), comma)
		}
		b.WriteString("      ]\n")
		if i == len(groups)-1 {
			b.WriteString("    }\n")
		} else {
			b.WriteString("    },\n")
		}
	}
	b.WriteString("  ]\n")
}

// jsonString 渲染带引号和转义的 JSON 字符串
func jsonString(s string) string {
	buf, _ := json.Marshal(s)
	return string(buf)
}

// jsonStageRow 单行渲染 [index, "stage", "duration"] 三元组
func jsonStageRow(row StageRow) string {
	return fmt.Sprintf("[%d, %s, %s]", row.Index, jsonString(row.Stage), jsonString(row.Duration))
}
