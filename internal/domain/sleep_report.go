package domain

// SleepReport 睡眠报告领域模型
// 每条记录对应一台设备一天的一份报告（tenant_id + device_id + date 唯一）
type SleepReport struct {
	ReportID   string `json:"report_id"`   // UUID
	TenantID   string `json:"tenant_id"`   // UUID
	DeviceID   string `json:"device_id"`   // UUID（如果为空，可通过 DeviceCode 匹配 devices 表获取）
	DeviceCode string `json:"device_code"` // 设备编码（来自厂家，等价于 devices.serial_number 或 devices.uid）

	// 报告基本信息
	Date       int   `json:"date"`        // 日期（YYYYMMDD 格式，如 20240820）
	StartTime  int64 `json:"start_time"`  // 开始时间（Unix 时间戳，秒）
	EndTime    int64 `json:"end_time"`    // 结束时间（Unix 时间戳，秒）
	EpochCount int   `json:"epoch_count"` // epoch 数量（每 epoch 30 秒）

	// 报告数据
	Hypnogram string `json:"hypnogram"` // 原始阶段序列（JSON 数组字符串，如 "[0,0,1,2,...]"）
	Report    string `json:"report"`    // 生成的紧凑 JSON 报告文本

	// 时间戳
	CreatedAt int64 `json:"created_at"` // 创建时间（Unix 时间戳，秒）
	UpdatedAt int64 `json:"updated_at"` // 更新时间（Unix 时间戳，秒）
}
