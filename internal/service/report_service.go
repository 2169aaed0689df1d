package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-sleep-report/internal/domain"
	"wisefido-sleep-report/internal/hypnogram"
	"wisefido-sleep-report/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	rediscommon "wisefido-sleep-report/internal/common/redis"
)

// vendorClientInterface 厂家客户端接口（用于测试和扩展）
type vendorClientInterface interface {
	FetchSleepSessions(deviceID, deviceCode string, startTime, endTime int64) ([]SleepSession, error)
}

// SleepReportService 睡眠报告服务接口
type SleepReportService interface {
	// GetReports 获取睡眠报告列表
	GetReports(ctx context.Context, req GetReportsRequest) (*GetReportsResponse, error)

	// GetReportDetail 获取睡眠报告详情（优先走缓存）
	GetReportDetail(ctx context.Context, req GetReportDetailRequest) (*GetReportDetailResponse, error)

	// GetReportDates 获取有数据的日期列表
	GetReportDates(ctx context.Context, req GetReportDatesRequest) (*GetReportDatesResponse, error)

	// DownloadReports 从厂家服务下载睡眠记录，生成报告并入库
	DownloadReports(ctx context.Context, req DownloadReportsRequest) error

	// GenerateReport 由调用方提供的 hypnogram 数据直接生成报告（不入库）
	GenerateReport(ctx context.Context, req GenerateReportRequest) (*GenerateReportResponse, error)
}

// sleepReportService 实现
type sleepReportService struct {
	reportsRepo  repository.SleepReportsRepository
	db           *sql.DB // 用于设备验证等复杂查询
	vendorClient vendorClientInterface
	cache        KVStore
	cacheTTL     time.Duration
	redisClient  *redis.Client // 用于 Stream 发布（测试中可为 nil）
	streamName   string
	logger       *zap.Logger
}

// 确保实现了接口
var _ SleepReportService = (*sleepReportService)(nil)

// NewSleepReportService 创建 SleepReportService 实例
func NewSleepReportService(reportsRepo repository.SleepReportsRepository, db *sql.DB, cache KVStore, cacheTTL time.Duration, logger *zap.Logger) *sleepReportService {
	return &sleepReportService{
		reportsRepo: reportsRepo,
		db:          db,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
		// vendorClient 需要通过 SetVendorClient 设置（延迟初始化）
	}
}

// SetVendorClient 设置厂家客户端（延迟初始化，避免循环依赖）
func (s *sleepReportService) SetVendorClient(client vendorClientInterface) {
	s.vendorClient = client
}

// SetStreamPublisher 设置 Redis Stream 发布目标
func (s *sleepReportService) SetStreamPublisher(client *redis.Client, stream string) {
	s.redisClient = client
	s.streamName = stream
}

// ============================================
// Request/Response DTOs
// ============================================

// GetReportsRequest 获取报告列表请求
type GetReportsRequest struct {
	TenantID  string // 必填
	DeviceID  string // 必填（设备 ID）
	StartDate int    // 开始日期（YYYYMMDD 格式，如 20250820）
	EndDate   int    // 结束日期（YYYYMMDD 格式）
	Page      int    // 页码，默认 1
	PageSize  int    // 每页数量，默认 10
}

// GetReportsResponse 获取报告列表响应
type GetReportsResponse struct {
	Items []*ReportOutlineDTO `json:"items"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Size  int                 `json:"size"`
}

// ReportOutlineDTO 报告概要 DTO（列表项，不包含完整 report 字段）
type ReportOutlineDTO struct {
	ID         string `json:"id"`         // report_id
	DeviceID   string `json:"deviceId"`   // device_id
	DeviceCode string `json:"deviceCode"` // device_code
	Date       int    `json:"date"`       // YYYYMMDD 格式
	StartTime  int64  `json:"startTime"`  // Unix 时间戳（秒）
	EndTime    int64  `json:"endTime"`    // Unix 时间戳（秒）
	EpochCount int    `json:"epochCount"`
}

// GetReportDetailRequest 获取报告详情请求
type GetReportDetailRequest struct {
	TenantID string // 必填
	DeviceID string // 必填
	Date     int    // 日期（YYYYMMDD 格式）
}

// GetReportDetailResponse 获取报告详情响应
type GetReportDetailResponse struct {
	ID         string `json:"id"`
	DeviceID   string `json:"deviceId"`
	DeviceCode string `json:"deviceCode"`
	Date       int    `json:"date"`
	StartTime  int64  `json:"startTime"`
	EndTime    int64  `json:"endTime"`
	EpochCount int    `json:"epochCount"`
	Hypnogram  string `json:"hypnogram"` // 原始阶段序列（JSON 数组字符串）
	Report     string `json:"report"`    // 生成的报告（JSON 文本）
}

// GetReportDatesRequest 获取有效日期列表请求
type GetReportDatesRequest struct {
	TenantID string // 必填
	DeviceID string // 必填
}

// GetReportDatesResponse 获取有效日期列表响应
type GetReportDatesResponse struct {
	Dates []int `json:"dates"` // 日期列表（YYYYMMDD 格式）
}

// DownloadReportsRequest 下载报告请求
type DownloadReportsRequest struct {
	TenantID   string // 必填
	DeviceID   string // 必填（设备 ID）
	DeviceCode string // 必填（设备编码，对应 devices.serial_number 或 devices.uid）
	StartTime  int64  // 开始时间（Unix 时间戳，秒）
	EndTime    int64  // 结束时间（Unix 时间戳，秒）
}

// GenerateReportRequest 即席生成报告请求
type GenerateReportRequest struct {
	SleepStages []int  `json:"sleepStages"`         // 阶段编码序列（每 epoch 30 秒）
	StartTime   string `json:"startTime,omitempty"` // "2006-01-02 15:04:05" 格式，可为空
	EndTime     string `json:"endTime,omitempty"`   // 同上；与 StartTime 相同视为未提供
	Compact     bool   `json:"compact,omitempty"`   // true 时返回紧凑文本而非结构化 JSON
}

// GenerateReportResponse 即席生成报告响应
type GenerateReportResponse struct {
	Report  *hypnogram.Report `json:"report,omitempty"`  // Compact=false 时返回
	Compact string            `json:"compact,omitempty"` // Compact=true 时返回
}

// reportGeneratedEvent 发布到 Redis Stream 的报告生成事件
type reportGeneratedEvent struct {
	EventID  string `json:"event_id"`
	TenantID string `json:"tenant_id"`
	DeviceID string `json:"device_id"`
	Date     int    `json:"date"`
	ReportID string `json:"report_id"`
}

// ============================================
// Service 方法实现
// ============================================

// GetReports 获取睡眠报告列表
func (s *sleepReportService) GetReports(ctx context.Context, req GetReportsRequest) (*GetReportsResponse, error) {
	if req.TenantID == "" || req.DeviceID == "" {
		return nil, fmt.Errorf("tenant_id and device_id are required")
	}

	// 验证设备是否存在且属于该租户
	if err := s.validateDevice(ctx, req.TenantID, req.DeviceID); err != nil {
		return nil, err
	}

	// 默认分页参数
	page := req.Page
	if page <= 0 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 10
	}

	// 默认日期范围（如果未指定，使用最近 30 天）
	startDate := req.StartDate
	endDate := req.EndDate
	if startDate == 0 || endDate == 0 {
		now := time.Now()
		endDate = dateToInt(now)
		startDate = dateToInt(now.AddDate(0, 0, -30))
	}

	reports, total, err := s.reportsRepo.ListReports(ctx, req.TenantID, req.DeviceID, startDate, endDate, page, size)
	if err != nil {
		s.logger.Error("failed to list sleep reports",
			zap.String("tenant_id", req.TenantID),
			zap.String("device_id", req.DeviceID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to list sleep reports: %w", err)
	}

	// 转换为 DTO
	items := make([]*ReportOutlineDTO, 0, len(reports))
	for _, report := range reports {
		items = append(items, &ReportOutlineDTO{
			ID:         report.ReportID,
			DeviceID:   report.DeviceID,
			DeviceCode: report.DeviceCode,
			Date:       report.Date,
			StartTime:  report.StartTime,
			EndTime:    report.EndTime,
			EpochCount: report.EpochCount,
		})
	}

	return &GetReportsResponse{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
	}, nil
}

// GetReportDetail 获取睡眠报告详情
// 先查缓存，缓存未命中时查数据库并回填缓存
func (s *sleepReportService) GetReportDetail(ctx context.Context, req GetReportDetailRequest) (*GetReportDetailResponse, error) {
	if req.TenantID == "" || req.DeviceID == "" || req.Date == 0 {
		return nil, fmt.Errorf("tenant_id, device_id and date are required")
	}

	// 验证设备是否存在且属于该租户
	if err := s.validateDevice(ctx, req.TenantID, req.DeviceID); err != nil {
		return nil, err
	}

	cacheKey := reportCacheKey(req.TenantID, req.DeviceID, req.Date)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			var resp GetReportDetailResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return &resp, nil
			}
			// 缓存数据损坏，回退到数据库
			s.logger.Warn("failed to unmarshal cached report, falling back to database",
				zap.String("cache_key", cacheKey),
			)
		} else if err != ErrCacheMiss {
			s.logger.Warn("failed to read report cache",
				zap.String("cache_key", cacheKey),
				zap.Error(err),
			)
		}
	}

	report, err := s.reportsRepo.GetReport(ctx, req.TenantID, req.DeviceID, req.Date)
	if err != nil {
		s.logger.Error("failed to get sleep report detail",
			zap.String("tenant_id", req.TenantID),
			zap.String("device_id", req.DeviceID),
			zap.Int("date", req.Date),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to get sleep report detail: %w", err)
	}

	if report == nil {
		return nil, fmt.Errorf("report not found for device %s on date %d", req.DeviceID, req.Date)
	}

	resp := &GetReportDetailResponse{
		ID:         report.ReportID,
		DeviceID:   report.DeviceID,
		DeviceCode: report.DeviceCode,
		Date:       report.Date,
		StartTime:  report.StartTime,
		EndTime:    report.EndTime,
		EpochCount: report.EpochCount,
		Hypnogram:  report.Hypnogram,
		Report:     report.Report,
	}

	s.cacheReportDetail(ctx, cacheKey, resp)

	return resp, nil
}

// GetReportDates 获取有数据的日期列表
func (s *sleepReportService) GetReportDates(ctx context.Context, req GetReportDatesRequest) (*GetReportDatesResponse, error) {
	if req.TenantID == "" || req.DeviceID == "" {
		return nil, fmt.Errorf("tenant_id and device_id are required")
	}

	// 验证设备是否存在且属于该租户
	if err := s.validateDevice(ctx, req.TenantID, req.DeviceID); err != nil {
		return nil, err
	}

	dates, err := s.reportsRepo.GetValidDates(ctx, req.TenantID, req.DeviceID)
	if err != nil {
		s.logger.Error("failed to get sleep report dates",
			zap.String("tenant_id", req.TenantID),
			zap.String("device_id", req.DeviceID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to get sleep report dates: %w", err)
	}

	return &GetReportDatesResponse{
		Dates: dates,
	}, nil
}

// DownloadReports 从厂家服务下载睡眠记录，生成报告并入库
func (s *sleepReportService) DownloadReports(ctx context.Context, req DownloadReportsRequest) error {
	if req.TenantID == "" || req.DeviceID == "" || req.DeviceCode == "" {
		return fmt.Errorf("tenant_id, device_id and device_code are required")
	}

	if req.StartTime == 0 || req.EndTime == 0 {
		return fmt.Errorf("start_time and end_time are required")
	}

	if s.vendorClient == nil {
		return fmt.Errorf("vendor client not initialized")
	}

	// 验证设备是否存在且属于该租户
	if err := s.validateDevice(ctx, req.TenantID, req.DeviceID); err != nil {
		return err
	}

	sessions, err := s.vendorClient.FetchSleepSessions(req.DeviceID, req.DeviceCode, req.StartTime, req.EndTime)
	if err != nil {
		s.logger.Error("Failed to fetch sessions from vendor API",
			zap.String("tenant_id", req.TenantID),
			zap.String("device_id", req.DeviceID),
			zap.String("device_code", req.DeviceCode),
			zap.Error(err),
		)
		return fmt.Errorf("failed to fetch sessions from vendor API: %w", err)
	}

	for i := len(sessions) - 1; i >= 0; i-- {
		session := sessions[i]

		if len(session.SleepStages) == 0 {
			s.logger.Warn("Skipping session without sleep stages",
				zap.String("device_id", req.DeviceID),
				zap.Int64("session_start", session.StartTime),
			)
			continue
		}

		startStr := formatUnix(session.StartTime)
		endStr := formatUnix(session.EndTime)
		compact := hypnogram.GenerateCompactReport(session.SleepStages, startStr, endStr)

		hypnogramJSON, err := json.Marshal(session.SleepStages)
		if err != nil {
			s.logger.Error("Failed to marshal sleep stages",
				zap.Error(err),
				zap.Int("index", i),
			)
			continue // 跳过无效的记录
		}

		// 厂家只给开始时间时 EndTime 等于 StartTime，按 epoch 数量推算
		endTime := session.EndTime
		if endTime == session.StartTime {
			endTime = session.StartTime + int64(len(session.SleepStages))*hypnogram.EpochDuration
		}

		domainReport := &domain.SleepReport{
			DeviceID:   req.DeviceID,
			DeviceCode: req.DeviceCode,
			Date:       timeToDate(session.StartTime),
			StartTime:  session.StartTime,
			EndTime:    endTime,
			EpochCount: len(session.SleepStages),
			Hypnogram:  string(hypnogramJSON),
			Report:     compact,
		}

		if err := s.reportsRepo.SaveReport(ctx, req.TenantID, domainReport); err != nil {
			s.logger.Error("Failed to save report",
				zap.String("tenant_id", req.TenantID),
				zap.String("device_id", req.DeviceID),
				zap.Int("date", domainReport.Date),
				zap.Error(err),
			)
			// 继续处理其他记录，不中断整个流程
			continue
		}

		// 报告入库后刷新缓存并发布事件
		s.cacheReportDetail(ctx, reportCacheKey(req.TenantID, req.DeviceID, domainReport.Date), &GetReportDetailResponse{
			ID:         domainReport.ReportID,
			DeviceID:   domainReport.DeviceID,
			DeviceCode: domainReport.DeviceCode,
			Date:       domainReport.Date,
			StartTime:  domainReport.StartTime,
			EndTime:    domainReport.EndTime,
			EpochCount: domainReport.EpochCount,
			Hypnogram:  domainReport.Hypnogram,
			Report:     domainReport.Report,
		})
		s.publishReportGenerated(ctx, req.TenantID, domainReport)

		s.logger.Info("Successfully saved report",
			zap.String("tenant_id", req.TenantID),
			zap.String("device_id", req.DeviceID),
			zap.Int("date", domainReport.Date),
			zap.Int("epoch_count", domainReport.EpochCount),
		)
	}

	return nil
}

// GenerateReport 由调用方提供的 hypnogram 数据直接生成报告（不入库）
func (s *sleepReportService) GenerateReport(ctx context.Context, req GenerateReportRequest) (*GenerateReportResponse, error) {
	if req.Compact {
		return &GenerateReportResponse{
			Compact: hypnogram.GenerateCompactReport(req.SleepStages, req.StartTime, req.EndTime),
		}, nil
	}
	return &GenerateReportResponse{
		Report: hypnogram.GenerateReport(req.SleepStages, req.StartTime, req.EndTime),
	}, nil
}

// ============================================
// 辅助方法
// ============================================

// cacheReportDetail 写入报告详情缓存（失败只记日志）
func (s *sleepReportService) cacheReportDetail(ctx context.Context, key string, resp *GetReportDetailResponse) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("failed to marshal report for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, string(data), s.cacheTTL); err != nil {
		s.logger.Warn("failed to write report cache",
			zap.String("cache_key", key),
			zap.Error(err),
		)
	}
}

// publishReportGenerated 发布报告生成事件到 Redis Stream（失败只记日志）
func (s *sleepReportService) publishReportGenerated(ctx context.Context, tenantID string, report *domain.SleepReport) {
	if s.redisClient == nil || s.streamName == "" {
		return
	}
	event := reportGeneratedEvent{
		EventID:  uuid.NewString(),
		TenantID: tenantID,
		DeviceID: report.DeviceID,
		Date:     report.Date,
		ReportID: report.ReportID,
	}
	if _, err := rediscommon.PublishJSONToStream(ctx, s.redisClient, s.streamName, event); err != nil {
		s.logger.Warn("failed to publish report event",
			zap.String("stream", s.streamName),
			zap.Error(err),
		)
	}
}

// validateDevice 验证设备是否存在且属于该租户
func (s *sleepReportService) validateDevice(ctx context.Context, tenantID, deviceID string) error {
	if s.db == nil {
		return nil // 测试环境未注入数据库时跳过验证
	}
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM devices
			WHERE device_id = $1::uuid
			  AND tenant_id = $2::uuid
			  AND status <> 'disabled'
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, deviceID, tenantID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to validate device: %w", err)
	}
	if !exists {
		return fmt.Errorf("device not found or not accessible")
	}
	return nil
}

// reportCacheKey 报告详情的缓存 key
func reportCacheKey(tenantID, deviceID string, date int) string {
	return fmt.Sprintf("sleep-report:%s:%s:%d", tenantID, deviceID, date)
}

// formatUnix 将 Unix 时间戳格式化为报告使用的时间字符串
func formatUnix(timestamp int64) string {
	return time.Unix(timestamp, 0).UTC().Format(hypnogram.TimeLayout)
}

// dateToInt 将 time.Time 转换为 YYYYMMDD 格式的整数
func dateToInt(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// timeToDate 将 Unix 时间戳转换为 YYYYMMDD 格式的整数
func timeToDate(timestamp int64) int {
	tm := time.Unix(timestamp, 0).UTC()
	return tm.Year()*10000 + int(tm.Month())*100 + tm.Day()
}
