package hypnogram

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repeatCodes 构造 [code]*n 形式的测试序列
func repeatCodes(pairs ...[2]int) []int {
	data := []int{}
	for _, p := range pairs {
		for i := 0; i < p[1]; i++ {
			data = append(data, p[0])
		}
	}
	return data
}

// durationToSeconds 把 "1h 1m 5s" 格式的时长还原为秒数（测试辅助）
func durationToSeconds(t *testing.T, s string) int {
	t.Helper()
	total := 0
	for _, part := range strings.Fields(s) {
		unit := part[len(part)-1]
		value, err := strconv.Atoi(part[:len(part)-1])
		require.NoError(t, err)
		switch unit {
		case 'h':
			total += value * 3600
		case 'm':
			total += value * 60
		case 's':
			total += value
		default:
			t.Fatalf("unexpected duration part %q", part)
		}
	}
	return total
}

func TestExtractEvents_Empty(t *testing.T) {
	events := ExtractEvents(nil)
	assert.Empty(t, events)

	events = ExtractEvents([]int{})
	assert.Empty(t, events)
}

func TestExtractEvents_RunLength(t *testing.T) {
	data := repeatCodes([2]int{0, 4}, [2]int{1, 2}, [2]int{0, 3})
	events := ExtractEvents(data)

	require.Len(t, events, 3)
	assert.Equal(t, StageEvent{StartEpoch: 0, Stage: "Wake", Duration: "2m"}, events[0])
	assert.Equal(t, StageEvent{StartEpoch: 4, Stage: "Light", Duration: "1m"}, events[1])
	assert.Equal(t, StageEvent{StartEpoch: 6, Stage: "Wake", Duration: "1m 30s"}, events[2])
}

func TestExtractEvents_SingleEpoch(t *testing.T) {
	events := ExtractEvents([]int{3})
	require.Len(t, events, 1)
	assert.Equal(t, StageEvent{StartEpoch: 0, Stage: "REM", Duration: "30s"}, events[0])
}

func TestExtractEvents_UnknownCodes(t *testing.T) {
	events := ExtractEvents([]int{9, 9, 5})
	require.Len(t, events, 2)
	assert.Equal(t, "Unknown(9)", events[0].Stage)
	assert.Equal(t, "Unknown(5)", events[1].Stage)
}

// 任意序列：事件时长之和等于总时长，事件首尾相接覆盖整个序列
func TestExtractEvents_RunLengthRoundTrip(t *testing.T) {
	sequences := [][]int{
		{0},
		{0, 0, 0, 1, 1, 2},
		{0, 1, 0, 1, 0, 1},
		{3, 3, 3, 3},
		repeatCodes([2]int{0, 120}, [2]int{1, 60}, [2]int{2, 80}, [2]int{3, 40}),
	}

	for _, data := range sequences {
		events := ExtractEvents(data)

		totalSeconds := 0
		coveredEpochs := 0
		for _, ev := range events {
			assert.Equal(t, coveredEpochs, ev.StartEpoch, "events must be contiguous")
			seconds := durationToSeconds(t, ev.Duration)
			totalSeconds += seconds
			coveredEpochs += seconds / EpochDuration
		}

		assert.Equal(t, len(data), coveredEpochs)
		assert.Equal(t, durationToSeconds(t, FormatDuration(len(data)*EpochDuration)), totalSeconds)
	}
}

// 相邻事件阶段一定不同
func TestExtractEvents_NoAdjacentMerge(t *testing.T) {
	data := []int{0, 0, 1, 1, 1, 0, 2, 2, 2, 2, 3, 0, 0, 9, 9, 0}
	events := ExtractEvents(data)

	for i := 1; i < len(events); i++ {
		assert.NotEqual(t, events[i-1].Stage, events[i].Stage,
			"consecutive events %d and %d share a stage", i-1, i)
	}
}

func TestSummarize_Empty(t *testing.T) {
	assert.Empty(t, Summarize(nil))
	assert.Empty(t, Summarize([]int{}))
}

func TestSummarize_InsertionOrder(t *testing.T) {
	data := repeatCodes([2]int{1, 3}, [2]int{0, 2}, [2]int{3, 1})
	summary := Summarize(data)

	require.Len(t, summary, 3)
	assert.Equal(t, "Light", summary[0].Stage)
	assert.Equal(t, "Wake", summary[1].Stage)
	assert.Equal(t, "REM", summary[2].Stage)

	assert.Equal(t, "1m 30s", summary[0].Duration)
	assert.Equal(t, "50.0%", summary[0].Percentage)
	assert.Equal(t, "33.3%", summary[1].Percentage)
	assert.Equal(t, "16.7%", summary[2].Percentage)
}

// 不同的未知编码不合并，各自独立计数
func TestSummarize_DistinctUnknownCodes(t *testing.T) {
	summary := Summarize([]int{5, 5, 9, 9})

	require.Len(t, summary, 2)
	assert.Equal(t, "Unknown(5)", summary[0].Stage)
	assert.Equal(t, "50.0%", summary[0].Percentage)
	assert.Equal(t, "Unknown(9)", summary[1].Stage)
	assert.Equal(t, "50.0%", summary[1].Percentage)
}

// 任意非空序列：从时长还原的 epoch 数之和正好是序列长度
func TestSummarize_PercentageClosure(t *testing.T) {
	sequences := [][]int{
		{0, 0, 1, 1, 1, 2},
		{0},
		repeatCodes([2]int{0, 120}, [2]int{1, 60}, [2]int{2, 80}, [2]int{3, 40}),
		{7, 7, 7, 0, 1},
	}

	for _, data := range sequences {
		summary := Summarize(data)

		totalEpochs := 0
		for _, entry := range summary {
			totalEpochs += durationToSeconds(t, entry.Duration) / EpochDuration
		}
		assert.Equal(t, len(data), totalEpochs)
	}
}
