package label

import "fmt"

// SleepStage 睡眠阶段编码（与床旁设备上报格式一致）
// 0=清醒, 1=浅睡眠, 2=深睡眠, 3=REM睡眠
type SleepStage int

const (
	Wake  SleepStage = 0
	Light SleepStage = 1
	Deep  SleepStage = 2
	REM   SleepStage = 3
)

// BreathEvent 呼吸事件编码
// 0=无事件, 1=呼吸暂停, 2=低通气, 3=打鼾
type BreathEvent int

const (
	NoEvent  BreathEvent = 0
	Apnea    BreathEvent = 1
	Hypopnea BreathEvent = 2
	Snore    BreathEvent = 3
)

// stageNames 睡眠阶段显示名称映射
var stageNames = map[SleepStage]string{
	Wake:  "Wake",
	Light: "Light",
	Deep:  "Deep",
	REM:   "REM",
}

// LookupStage 查询阶段编码对应的显示名称
// 返回 (名称, true)；未知编码返回 ("", false)
func LookupStage(code int) (string, bool) {
	name, ok := stageNames[SleepStage(code)]
	return name, ok
}

// StageName 获取阶段编码的显示名称
// 未知编码不视为错误，统一渲染为 "Unknown(<code>)"
// 所有未知编码的格式化集中在这里，调用方不要自行拼接
func StageName(code int) string {
	if name, ok := LookupStage(code); ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", code)
}

// String 实现 fmt.Stringer
func (s SleepStage) String() string {
	return StageName(int(s))
}
