package hypnogram

import "encoding/json"

// EpochDuration 每个 epoch 的时长（秒）
// 原始睡眠阶段序列按固定 30 秒采样，所有时长计算都以此为基准
const EpochDuration = 30

// StageEvent 睡眠阶段事件（同一阶段的最大连续段）
type StageEvent struct {
	StartEpoch int    `json:"start_epoch"` // 起始 epoch 偏移（从 0 开始）
	Stage      string `json:"stage"`       // 阶段显示名称
	Duration   string `json:"duration"`    // 格式化时长，如 "1h 30m"
}

// SummaryEntry 单个阶段的汇总（时长 + 占比）
type SummaryEntry struct {
	Stage      string
	Duration   string
	Percentage string // 一位小数 + "%"，如 "33.3%"
}

// StageSummary 阶段汇总，按首次出现顺序排列
type StageSummary []SummaryEntry

// MarshalJSON 渲染为 {stage: [duration, percentage]} 对象，保持插入顺序
func (s StageSummary) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, entry := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(entry.Stage)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal([]string{entry.Duration, entry.Percentage})
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, value...)
	}
	return append(buf, '}'), nil
}

// StageRow 小时分组中的一行：[序号, 阶段, 时长]
// 序号是跨所有分组的全局 1 起始序号
type StageRow struct {
	Index    int
	Stage    string
	Duration string
}

// MarshalJSON 渲染为三元组数组 [index, "stage", "duration"]
func (r StageRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Index, r.Stage, r.Duration})
}

// HourGroup 按整点小时分组的事件
type HourGroup struct {
	HourRange string     `json:"hour_range"` // 如 "11:00 PM - 12:00 AM"；无时间信息时为 "All Events"
	Stages    []StageRow `json:"stages"`
}

// Report 完整的睡眠阶段报告
type Report struct {
	SleepTime         string       `json:"sleep_time"` // 起止时间范围；无时间信息时为空串
	Duration          string       `json:"duration"`
	SleepStageSummary StageSummary `json:"sleep_stage_summary"`
	SleepStagesByHour []HourGroup  `json:"sleep_stages_by_hour"`
}

// GenerateReport 从原始阶段序列生成结构化报告
//
// 完整流水线：
// 1. 提取阶段事件（run-length 压缩）
// 2. 计算各阶段汇总
// 3. 解析起止时间（解析失败降级为无时间信息，不报错）
// 4. 按小时分组事件
//
// 约定：startTime 与 endTime 均有效且相等时，表示调用方只提供了开始时间，
// 结束时间按序列长度重新计算，而不是按零长度区间处理
func GenerateReport(data []int, startTime, endTime string) *Report {
	events := ExtractEvents(data)
	summary := Summarize(data)

	report := &Report{
		SleepTime:         "",
		Duration:          FormatDuration(len(data) * EpochDuration),
		SleepStageSummary: summary,
		SleepStagesByHour: []HourGroup{},
	}

	start, startOK := ParseTime(startTime)
	end, endOK := ParseTime(endTime)

	if startOK && endOK && end.Equal(start) && len(data) > 0 {
		end = CalculateEndTime(start, len(data))
	}

	if startOK && endOK {
		report.SleepTime = FormatTimeRange(start, end)
	}

	if startOK {
		report.SleepStagesByHour = GroupByHour(events, &start)
	} else {
		report.SleepStagesByHour = GroupByHour(events, nil)
	}

	return report
}

// GenerateCompactReport 生成紧凑 JSON 文本格式的报告
func GenerateCompactReport(data []int, startTime, endTime string) string {
	return FormatReportCompact(GenerateReport(data, startTime, endTime))
}
