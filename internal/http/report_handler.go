package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"wisefido-sleep-report/internal/hypnogram"
	"wisefido-sleep-report/internal/service"

	"go.uber.org/zap"
)

// SleepReportHandler 睡眠报告 Handler
type SleepReportHandler struct {
	reportService service.SleepReportService
	db            *sql.DB // 用于查询设备信息
	logger        *zap.Logger
}

// NewSleepReportHandler 创建 SleepReportHandler
func NewSleepReportHandler(reportService service.SleepReportService, db *sql.DB, logger *zap.Logger) *SleepReportHandler {
	return &SleepReportHandler{
		reportService: reportService,
		db:            db,
		logger:        logger,
	}
}

// ServeHTTP 处理 HTTP 请求
func (h *SleepReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由：/sleep/api/v1/sleep/reports/:id
	// 支持：
	//   - GET  /sleep/api/v1/sleep/reports/:id          - 获取报告列表
	//   - GET  /sleep/api/v1/sleep/reports/:id/detail   - 获取报告详情
	//   - GET  /sleep/api/v1/sleep/reports/:id/dates    - 获取有效日期列表
	//   - GET  /sleep/api/v1/sleep/reports/:id/export   - 导出报告 Excel
	//   - POST /sleep/api/v1/sleep/reports/:id/download - 手动触发下载

	path := r.URL.Path
	deviceID := extractDeviceIDFromPath(path)

	if deviceID == "" {
		writeJSON(w, http.StatusOK, Fail("device_id is required"))
		return
	}

	// 根据路径后缀路由到不同的处理函数
	if strings.HasSuffix(path, "/download") {
		if r.Method == http.MethodPost {
			h.DownloadReports(w, r, deviceID)
		} else {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	} else if strings.HasSuffix(path, "/detail") {
		h.GetReportDetail(w, r, deviceID)
	} else if strings.HasSuffix(path, "/dates") {
		h.GetReportDates(w, r, deviceID)
	} else if strings.HasSuffix(path, "/export") {
		h.ExportReport(w, r, deviceID)
	} else {
		h.GetReports(w, r, deviceID)
	}
}

// GetReports 获取睡眠报告列表
// GET /sleep/api/v1/sleep/reports/:id?startDate=20250820&endDate=20250830&page=1&size=10
func (h *SleepReportHandler) GetReports(w http.ResponseWriter, r *http.Request, deviceID string) {
	ctx := r.Context()
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	// 解析查询参数
	startDate, _ := parseIntQuery(r, "startDate", 0)
	endDate, _ := parseIntQuery(r, "endDate", 0)
	page, _ := parseIntQuery(r, "page", 1)
	size, _ := parseIntQuery(r, "size", 10)

	req := service.GetReportsRequest{
		TenantID:  tenantID,
		DeviceID:  deviceID,
		StartDate: startDate,
		EndDate:   endDate,
		Page:      page,
		PageSize:  size,
	}

	resp, err := h.reportService.GetReports(ctx, req)
	if err != nil {
		h.logger.Error("GetReports failed",
			zap.String("tenant_id", tenantID),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	result := map[string]any{
		"items": resp.Items,
		"pagination": map[string]any{
			"size":  resp.Size,
			"page":  resp.Page,
			"count": resp.Total,
			"total": resp.Total,
		},
	}

	writeJSON(w, http.StatusOK, Ok(result))
}

// GetReportDetail 获取睡眠报告详情
// GET /sleep/api/v1/sleep/reports/:id/detail?date=20250820
func (h *SleepReportHandler) GetReportDetail(w http.ResponseWriter, r *http.Request, deviceID string) {
	ctx := r.Context()
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	date, err := parseIntQuery(r, "date", 0)
	if err != nil || date == 0 {
		writeJSON(w, http.StatusOK, Fail("date parameter is required (YYYYMMDD format)"))
		return
	}

	req := service.GetReportDetailRequest{
		TenantID: tenantID,
		DeviceID: deviceID,
		Date:     date,
	}

	resp, err := h.reportService.GetReportDetail(ctx, req)
	if err != nil {
		h.logger.Error("GetReportDetail failed",
			zap.String("tenant_id", tenantID),
			zap.String("device_id", deviceID),
			zap.Int("date", date),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	result := map[string]any{
		"id":         resp.ID,
		"deviceId":   resp.DeviceID,
		"deviceCode": resp.DeviceCode,
		"date":       resp.Date,
		"startTime":  resp.StartTime,
		"endTime":    resp.EndTime,
		"epochCount": resp.EpochCount,
		"hypnogram":  resp.Hypnogram,
		"report":     resp.Report,
	}

	writeJSON(w, http.StatusOK, Ok(result))
}

// GetReportDates 获取有效日期列表
// GET /sleep/api/v1/sleep/reports/:id/dates
func (h *SleepReportHandler) GetReportDates(w http.ResponseWriter, r *http.Request, deviceID string) {
	ctx := r.Context()
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	req := service.GetReportDatesRequest{
		TenantID: tenantID,
		DeviceID: deviceID,
	}

	resp, err := h.reportService.GetReportDates(ctx, req)
	if err != nil {
		h.logger.Error("GetReportDates failed",
			zap.String("tenant_id", tenantID),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	// 直接返回日期数组
	writeJSON(w, http.StatusOK, Ok(resp.Dates))
}

// DownloadReports 手动触发下载报告
// POST /sleep/api/v1/sleep/reports/:id/download?startTime=1234567890&endTime=1234567890
func (h *SleepReportHandler) DownloadReports(w http.ResponseWriter, r *http.Request, deviceID string) {
	ctx := r.Context()
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	startTime, err := parseInt64Query(r, "startTime", 0)
	if err != nil || startTime == 0 {
		writeJSON(w, http.StatusOK, Fail("startTime parameter is required (Unix timestamp in seconds)"))
		return
	}

	endTime, err := parseInt64Query(r, "endTime", 0)
	if err != nil || endTime == 0 {
		writeJSON(w, http.StatusOK, Fail("endTime parameter is required (Unix timestamp in seconds)"))
		return
	}

	// 获取设备编码（serial_number 或 uid），厂家 API 需要
	deviceCode, err := h.getDeviceCode(ctx, tenantID, deviceID)
	if err != nil {
		h.logger.Error("Failed to get device code",
			zap.String("tenant_id", tenantID),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to get device code: %v", err)))
		return
	}

	req := service.DownloadReportsRequest{
		TenantID:   tenantID,
		DeviceID:   deviceID,
		DeviceCode: deviceCode,
		StartTime:  startTime,
		EndTime:    endTime,
	}

	if err := h.reportService.DownloadReports(ctx, req); err != nil {
		h.logger.Error("DownloadReports failed",
			zap.String("tenant_id", tenantID),
			zap.String("device_id", deviceID),
			zap.String("device_code", deviceCode),
			zap.Int64("start_time", startTime),
			zap.Int64("end_time", endTime),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// ExportReport 导出报告 Excel
// GET /sleep/api/v1/sleep/reports/:id/export?date=20250820
func (h *SleepReportHandler) ExportReport(w http.ResponseWriter, r *http.Request, deviceID string) {
	ctx := r.Context()
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	date, err := parseIntQuery(r, "date", 0)
	if err != nil || date == 0 {
		writeJSON(w, http.StatusOK, Fail("date parameter is required (YYYYMMDD format)"))
		return
	}

	detail, err := h.reportService.GetReportDetail(ctx, service.GetReportDetailRequest{
		TenantID: tenantID,
		DeviceID: deviceID,
		Date:     date,
	})
	if err != nil {
		h.logger.Error("ExportReport failed",
			zap.String("tenant_id", tenantID),
			zap.String("device_id", deviceID),
			zap.Int("date", date),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	// 从存储的原始阶段序列重新生成结构化报告
	var stages []int
	if err := json.Unmarshal([]byte(detail.Hypnogram), &stages); err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("invalid hypnogram data: %v", err)))
		return
	}

	startStr := ""
	endStr := ""
	if detail.StartTime > 0 {
		startStr = formatUnixForReport(detail.StartTime)
	}
	if detail.EndTime > 0 {
		endStr = formatUnixForReport(detail.EndTime)
	}
	report := hypnogram.GenerateReport(stages, startStr, endStr)

	data, err := GenerateSleepReportExport(detail.DeviceCode, date, report)
	if err != nil {
		h.logger.Error("Failed to generate report excel",
			zap.String("tenant_id", tenantID),
			zap.String("device_id", deviceID),
			zap.Int("date", date),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	filename := fmt.Sprintf("sleep_report_%s_%d.xlsx", detail.DeviceCode, date)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GenerateReport 即席生成报告（不入库）
// POST /sleep/api/v1/sleep/reports/generate
// Body: {"sleepStages": [0,0,1,...], "startTime": "...", "endTime": "...", "compact": false}
func (h *SleepReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.GenerateReportRequest
	if err := readBodyJSON(r, 10<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	resp, err := h.reportService.GenerateReport(ctx, req)
	if err != nil {
		h.logger.Error("GenerateReport failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	if req.Compact {
		writeJSON(w, http.StatusOK, Ok(resp.Compact))
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp.Report))
}

// ============================================
// 辅助方法
// ============================================

// getDeviceCode 通过 device_id 获取 device_code（serial_number 或 uid）
func (h *SleepReportHandler) getDeviceCode(ctx context.Context, tenantID, deviceID string) (string, error) {
	if h.db == nil {
		return "", fmt.Errorf("database connection not available")
	}

	query := `
		SELECT COALESCE(serial_number, uid, '') as device_code
		FROM devices
		WHERE tenant_id = $1::uuid
		  AND device_id = $2::uuid
		  AND status <> 'disabled'
		LIMIT 1
	`
	var deviceCode string
	err := h.db.QueryRowContext(ctx, query, tenantID, deviceID).Scan(&deviceCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("device not found")
		}
		return "", fmt.Errorf("failed to get device code: %w", err)
	}
	if deviceCode == "" {
		return "", fmt.Errorf("device code not found (serial_number and uid are both empty)")
	}
	return deviceCode, nil
}

// extractDeviceIDFromPath 从路径中提取 device_id
// 路径格式：/sleep/api/v1/sleep/reports/:id 或 /sleep/api/v1/sleep/reports/:id/detail
func extractDeviceIDFromPath(path string) string {
	prefix := "/sleep/api/v1/sleep/reports/"
	if !strings.HasPrefix(path, prefix) {
		return ""
	}

	deviceID := strings.TrimPrefix(path, prefix)
	deviceID = strings.TrimSuffix(deviceID, "/detail")
	deviceID = strings.TrimSuffix(deviceID, "/dates")
	deviceID = strings.TrimSuffix(deviceID, "/download")
	deviceID = strings.TrimSuffix(deviceID, "/export")
	deviceID = strings.TrimSuffix(deviceID, "/")

	return deviceID
}
