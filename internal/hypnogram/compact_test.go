package hypnogram

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatReportCompact_Layout(t *testing.T) {
	data := repeatCodes([2]int{0, 4}, [2]int{1, 2})
	report := GenerateReport(data, "2024-01-15 23:00:00", "2024-01-15 23:03:00")
	output := FormatReportCompact(report)

	lines := strings.Split(output, "\n")
	assert.Equal(t, "{", lines[0])
	assert.Equal(t, "}", lines[len(lines)-1])
	assert.Contains(t, lines, `  "sleep_time": "11:00 PM - 11:03 PM",`)
	assert.Contains(t, lines, `  "duration": "3m",`)
	assert.Contains(t, lines, `  "sleep_stage_summary": {`)
	assert.Contains(t, lines, `    "Wake": ["2m", "66.7%"],`)
	assert.Contains(t, lines, `    "Light": ["1m", "33.3%"]`)
	assert.Contains(t, lines, `  "sleep_stages_by_hour": [`)
	assert.Contains(t, lines, `      "hour_range": "11:00 PM - 12:00 AM",`)
	assert.Contains(t, lines, `        [1, "Wake", "2m"],`)
	assert.Contains(t, lines, `        [2, "Light", "1m"]`)
}

// stages 数组的每个三元组单独占一行，行内不换行
func TestFormatReportCompact_StageTuplesOnSingleLines(t *testing.T) {
	data := repeatCodes([2]int{0, 2}, [2]int{1, 2}, [2]int{2, 2}, [2]int{3, 2})
	output := GenerateCompactReport(data, "2024-01-15 23:00:00", "")

	tupleLines := 0
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSuffix(strings.TrimSpace(line), ",")
		if !strings.HasPrefix(trimmed, "[") {
			continue
		}
		tupleLines++
		// 每个三元组自成一行，可独立解析
		var tuple []any
		require.NoError(t, json.Unmarshal([]byte(trimmed), &tuple))
		assert.Len(t, tuple, 3)
	}
	assert.Equal(t, 4, tupleLines)
}

// 输出是合法 JSON，重新解析后与结构化报告等价
func TestFormatReportCompact_RoundTrip(t *testing.T) {
	data := repeatCodes([2]int{0, 120}, [2]int{1, 60}, [2]int{2, 80}, [2]int{3, 40})
	report := GenerateReport(data, "2024-01-15 23:00:00", "2024-01-16 01:30:00")
	output := FormatReportCompact(report)

	var fromCompact any
	require.NoError(t, json.Unmarshal([]byte(output), &fromCompact), "compact output must be valid JSON")

	structured, err := json.Marshal(report)
	require.NoError(t, err)
	var fromStructured any
	require.NoError(t, json.Unmarshal(structured, &fromStructured))

	assert.Equal(t, fromStructured, fromCompact)
}

func TestFormatReportCompact_EmptyReport(t *testing.T) {
	output := GenerateCompactReport(nil, "", "")

	assert.Contains(t, output, `"sleep_stage_summary": {},`)
	assert.Contains(t, output, `"sleep_time": "",`)
	assert.Contains(t, output, `"duration": "0s",`)
	assert.Contains(t, output, `"hour_range": "All Events",`)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &decoded))
}

// 带开始时间但无事件：by_hour 数组为空
func TestFormatReportCompact_EmptyByHour(t *testing.T) {
	output := GenerateCompactReport(nil, "2024-01-15 23:00:00", "")

	assert.Contains(t, output, "  \"sleep_stages_by_hour\": [\n  ]")

	var decoded struct {
		SleepStagesByHour []any `json:"sleep_stages_by_hour"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &decoded))
	assert.Empty(t, decoded.SleepStagesByHour)
}

func TestFormatReportCompact_UnknownStageEscaping(t *testing.T) {
	output := GenerateCompactReport([]int{9, 9}, "", "")

	assert.Contains(t, output, `"Unknown(9)": ["1m", "100.0%"]`)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &decoded))
}
