package stat

import (
	"fmt"
	"time"
)

// SleepStat 单次睡眠记录的聚合统计指标
// 可选指标（部分设备/算法不产出）用指针表示缺失
type SleepStat struct {
	SleepTime time.Time `json:"sleep_time"` // 入睡时刻
	WakeTime  time.Time `json:"wake_time"`  // 觉醒时刻

	SleepIndex int `json:"sleep_index"` // 睡眠指数（0-100）

	SleepLatency  time.Duration `json:"sleep_latency"`  // 入睡潜伏期
	WakeupLatency time.Duration `json:"wakeup_latency"` // 觉醒潜伏期
	LightLatency  time.Duration `json:"light_latency"`  // 浅睡潜伏期
	DeepLatency   time.Duration `json:"deep_latency"`   // 深睡潜伏期
	REMLatency    time.Duration `json:"rem_latency"`    // REM 潜伏期

	TimeInBed            time.Duration  `json:"time_in_bed"`
	TimeInSleepPeriod    time.Duration  `json:"time_in_sleep_period"`
	TimeInSleep          time.Duration  `json:"time_in_sleep"`
	TimeInWake           time.Duration  `json:"time_in_wake"`
	TimeInLight          time.Duration  `json:"time_in_light"`
	TimeInDeep           time.Duration  `json:"time_in_deep"`
	TimeInREM            time.Duration  `json:"time_in_rem"`
	TimeInStableBreath   time.Duration  `json:"time_in_stable_breath"`
	TimeInUnstableBreath time.Duration  `json:"time_in_unstable_breath"`
	TimeInSnoring        *time.Duration `json:"time_in_snoring,omitempty"`
	TimeInNoSnoring      *time.Duration `json:"time_in_no_snoring,omitempty"`

	SleepEfficiency float64 `json:"sleep_efficiency"`

	SleepRatio          *float64 `json:"sleep_ratio,omitempty"`
	WakeRatio           *float64 `json:"wake_ratio,omitempty"`
	LightRatio          *float64 `json:"light_ratio,omitempty"`
	DeepRatio           *float64 `json:"deep_ratio,omitempty"`
	REMRatio            *float64 `json:"rem_ratio,omitempty"`
	StableBreathRatio   *float64 `json:"stable_breath_ratio,omitempty"`
	UnstableBreathRatio *float64 `json:"unstable_breath_ratio,omitempty"`
	SnoringRatio        *float64 `json:"snoring_ratio,omitempty"`
	NoSnoringRatio      *float64 `json:"no_snoring_ratio,omitempty"`

	BreathingIndex   float64 `json:"breathing_index"`
	BreathingPattern string  `json:"breathing_pattern"`

	WASOCount   *int           `json:"waso_count,omitempty"`   // 入睡后觉醒次数
	LongestWASO *time.Duration `json:"longest_waso,omitempty"` // 最长入睡后觉醒

	SleepCycleCount *int           `json:"sleep_cycle_count,omitempty"`
	SleepCycle      *time.Duration `json:"sleep_cycle,omitempty"`
	SleepCycleTime  []time.Time    `json:"sleep_cycle_time"`

	UnstableBreathCount *int `json:"unstable_breath_count,omitempty"`
	SnoringCount        *int `json:"snoring_count,omitempty"`
}

// SleepStatDelta 两次睡眠记录的逐字段差值
// 时刻类字段的差值按"同一天的钟面时间差"计算（见 SubtractRelativeTime），
// 只有双方都有值的可选字段才产出差值
type SleepStatDelta struct {
	SleepTime time.Duration `json:"sleep_time"`
	WakeTime  time.Duration `json:"wake_time"`

	SleepIndex int `json:"sleep_index"`

	SleepLatency  time.Duration `json:"sleep_latency"`
	WakeupLatency time.Duration `json:"wakeup_latency"`
	LightLatency  time.Duration `json:"light_latency"`
	DeepLatency   time.Duration `json:"deep_latency"`
	REMLatency    time.Duration `json:"rem_latency"`

	TimeInBed            time.Duration  `json:"time_in_bed"`
	TimeInSleepPeriod    time.Duration  `json:"time_in_sleep_period"`
	TimeInSleep          time.Duration  `json:"time_in_sleep"`
	TimeInWake           time.Duration  `json:"time_in_wake"`
	TimeInLight          time.Duration  `json:"time_in_light"`
	TimeInDeep           time.Duration  `json:"time_in_deep"`
	TimeInREM            time.Duration  `json:"time_in_rem"`
	TimeInStableBreath   time.Duration  `json:"time_in_stable_breath"`
	TimeInUnstableBreath time.Duration  `json:"time_in_unstable_breath"`
	TimeInSnoring        *time.Duration `json:"time_in_snoring,omitempty"`
	TimeInNoSnoring      *time.Duration `json:"time_in_no_snoring,omitempty"`

	SleepEfficiency float64 `json:"sleep_efficiency"`

	SleepRatio          *float64 `json:"sleep_ratio,omitempty"`
	WakeRatio           *float64 `json:"wake_ratio,omitempty"`
	LightRatio          *float64 `json:"light_ratio,omitempty"`
	DeepRatio           *float64 `json:"deep_ratio,omitempty"`
	REMRatio            *float64 `json:"rem_ratio,omitempty"`
	StableBreathRatio   *float64 `json:"stable_breath_ratio,omitempty"`
	UnstableBreathRatio *float64 `json:"unstable_breath_ratio,omitempty"`
	SnoringRatio        *float64 `json:"snoring_ratio,omitempty"`
	NoSnoringRatio      *float64 `json:"no_snoring_ratio,omitempty"`

	BreathingIndex float64 `json:"breathing_index"`

	WASOCount   *int           `json:"waso_count,omitempty"`
	LongestWASO *time.Duration `json:"longest_waso,omitempty"`

	SleepCycleCount *int           `json:"sleep_cycle_count,omitempty"`
	SleepCycle      *time.Duration `json:"sleep_cycle,omitempty"`

	UnstableBreathCount *int `json:"unstable_breath_count,omitempty"`
}

// Sub 计算 s - other 的逐字段差值
func (s *SleepStat) Sub(other *SleepStat) *SleepStatDelta {
	return &SleepStatDelta{
		SleepTime: SubtractRelativeTime(s.SleepTime, other.SleepTime),
		WakeTime:  SubtractRelativeTime(s.WakeTime, other.WakeTime),

		SleepIndex: s.SleepIndex - other.SleepIndex,

		SleepLatency:  s.SleepLatency - other.SleepLatency,
		WakeupLatency: s.WakeupLatency - other.WakeupLatency,
		LightLatency:  s.LightLatency - other.LightLatency,
		DeepLatency:   s.DeepLatency - other.DeepLatency,
		REMLatency:    s.REMLatency - other.REMLatency,

		TimeInBed:            s.TimeInBed - other.TimeInBed,
		TimeInSleepPeriod:    s.TimeInSleepPeriod - other.TimeInSleepPeriod,
		TimeInSleep:          s.TimeInSleep - other.TimeInSleep,
		TimeInWake:           s.TimeInWake - other.TimeInWake,
		TimeInLight:          s.TimeInLight - other.TimeInLight,
		TimeInDeep:           s.TimeInDeep - other.TimeInDeep,
		TimeInREM:            s.TimeInREM - other.TimeInREM,
		TimeInStableBreath:   s.TimeInStableBreath - other.TimeInStableBreath,
		TimeInUnstableBreath: s.TimeInUnstableBreath - other.TimeInUnstableBreath,
		TimeInSnoring:        subDuration(s.TimeInSnoring, other.TimeInSnoring),
		TimeInNoSnoring:      subDuration(s.TimeInNoSnoring, other.TimeInNoSnoring),

		SleepEfficiency: s.SleepEfficiency - other.SleepEfficiency,

		SleepRatio:          subFloat(s.SleepRatio, other.SleepRatio),
		WakeRatio:           subFloat(s.WakeRatio, other.WakeRatio),
		LightRatio:          subFloat(s.LightRatio, other.LightRatio),
		DeepRatio:           subFloat(s.DeepRatio, other.DeepRatio),
		REMRatio:            subFloat(s.REMRatio, other.REMRatio),
		StableBreathRatio:   subFloat(s.StableBreathRatio, other.StableBreathRatio),
		UnstableBreathRatio: subFloat(s.UnstableBreathRatio, other.UnstableBreathRatio),
		SnoringRatio:        subFloat(s.SnoringRatio, other.SnoringRatio),
		NoSnoringRatio:      subFloat(s.NoSnoringRatio, other.NoSnoringRatio),

		BreathingIndex: s.BreathingIndex - other.BreathingIndex,

		WASOCount:   subInt(s.WASOCount, other.WASOCount),
		LongestWASO: subDuration(s.LongestWASO, other.LongestWASO),

		SleepCycleCount: subInt(s.SleepCycleCount, other.SleepCycleCount),
		SleepCycle:      subDuration(s.SleepCycle, other.SleepCycle),

		UnstableBreathCount: subInt(s.UnstableBreathCount, other.UnstableBreathCount),
	}
}

// UpdateToTimezone 将所有时刻字段转换到指定 IANA 时区
func (s *SleepStat) UpdateToTimezone(tz string) error {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", tz, err)
	}
	s.SleepTime = s.SleepTime.In(loc)
	s.WakeTime = s.WakeTime.In(loc)
	for i, t := range s.SleepCycleTime {
		s.SleepCycleTime[i] = t.In(loc)
	}
	return nil
}

// SubtractRelativeTime 计算两个时刻的钟面时间差，忽略日期和时区
// 结果归一化到 (-12h, +12h]：跨午夜的 00:10 - 23:50 是 +20m 而不是 -23h40m；
// 正好相差 12 小时时取 +12h
func SubtractRelativeTime(dt1, dt2 time.Time) time.Duration {
	const halfDay = 12 * 3600
	const fullDay = 24 * 3600

	delta := clockSeconds(dt1) - clockSeconds(dt2)
	mod := ((delta+halfDay)%fullDay+fullDay)%fullDay - halfDay
	if mod == -halfDay {
		mod = halfDay
	}
	return time.Duration(mod) * time.Second
}

// clockSeconds 当天的钟面秒数（0 - 86399）
func clockSeconds(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func subDuration(a, b *time.Duration) *time.Duration {
	if a == nil || b == nil {
		return nil
	}
	d := *a - *b
	return &d
}

func subFloat(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	f := *a - *b
	return &f
}

func subInt(a, b *int) *int {
	if a == nil || b == nil {
		return nil
	}
	i := *a - *b
	return &i
}
