package models

import "encoding/json"

// ReceivedMessage 厂家 MQTT 消息结构
type ReceivedMessage struct {
	DeviceId  string          `json:"deviceId"`  // 设备代码（device_code）
	DataKey   string          `json:"dataKey"`   // 数据类型：analysis, connectionStatus, sleepStage 等
	TimeStamp int64           `json:"timestamp"` // 时间戳
	Data      json.RawMessage `json:"data"`      // 数据内容（JSON）
}

// AnalysisData 分析完成事件数据（触发报告下载）
type AnalysisData struct {
	DeviceId  string `json:"deviceId"`
	UserId    string `json:"userId"`
	StartTime int64  `json:"startTime"` // 记录开始时间（Unix 时间戳，秒）
	TimeStamp int64  `json:"timeStamp"` // 记录结束时间（Unix 时间戳，秒）
}

// SleepStageData 实时睡眠阶段数据
type SleepStageData struct {
	DeviceId   string `json:"deviceId"`
	TimeStamp  int64  `json:"timestamp"`
	SleepStage int    `json:"sleepStage"` // 0=清醒, 1=浅睡眠, 2=深睡眠, 3=REM睡眠
}

// ConnectionStatusData 连接状态数据
type ConnectionStatusData struct {
	DeviceId         string `json:"deviceId"`
	TimeStamp        int64  `json:"timestamp"`
	ConnectionStatus int    `json:"connectionStatus"` // 0=离线, 1=在线
}
