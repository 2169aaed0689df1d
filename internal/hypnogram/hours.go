package hypnogram

import "time"

// GroupByHour 将事件按整点小时分桶
//
// start 为 nil 时（无时间信息），返回唯一的 "All Events" 分组，包含全部事件。
// 否则从 start 所在的整点小时开始建桶：每个事件按其绝对开始时间
// （start + start_epoch * EpochDuration 秒）落入所属的小时桶；跨过桶边界时
// 关闭当前桶（仅在非空时输出）并推进到下一个连续整点桶，中间隔多个空小时
// 也能正确跳过。行内序号是整个事件列表的全局 1 起始序号，不按桶重置
func GroupByHour(events []StageEvent, start *time.Time) []HourGroup {
	if start == nil {
		rows := make([]StageRow, 0, len(events))
		for i, event := range events {
			rows = append(rows, StageRow{Index: i + 1, Stage: event.Stage, Duration: event.Duration})
		}
		return []HourGroup{{HourRange: "All Events", Stages: rows}}
	}

	groups := []HourGroup{}
	currentHour := floorToHour(*start)
	nextHour := currentHour.Add(time.Hour)
	current := HourGroup{HourRange: FormatTimeRange(currentHour, nextHour), Stages: []StageRow{}}

	for i, event := range events {
		eventStart := start.Add(time.Duration(event.StartEpoch*EpochDuration) * time.Second)

		// 事件越过当前桶右边界时推进桶，空桶不输出
		for !eventStart.Before(nextHour) {
			if len(current.Stages) > 0 {
				groups = append(groups, current)
			}
			currentHour = nextHour
			nextHour = currentHour.Add(time.Hour)
			current = HourGroup{HourRange: FormatTimeRange(currentHour, nextHour), Stages: []StageRow{}}
		}

		current.Stages = append(current.Stages, StageRow{Index: i + 1, Stage: event.Stage, Duration: event.Duration})
	}

	if len(current.Stages) > 0 {
		groups = append(groups, current)
	}

	return groups
}

// floorToHour 取整到所在小时的起点
func floorToHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
