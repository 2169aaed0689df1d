package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wisefido-sleep-report/internal/domain"
)

// PostgresSleepReportsRepository 睡眠报告 Repository 实现
type PostgresSleepReportsRepository struct {
	db *sql.DB
}

// NewPostgresSleepReportsRepository 创建睡眠报告 Repository
func NewPostgresSleepReportsRepository(db *sql.DB) *PostgresSleepReportsRepository {
	return &PostgresSleepReportsRepository{db: db}
}

// 确保实现了接口
var _ SleepReportsRepository = (*PostgresSleepReportsRepository)(nil)

// GetReport 根据 device_id 和 date 获取报告详情
func (r *PostgresSleepReportsRepository) GetReport(ctx context.Context, tenantID, deviceID string, date int) (*domain.SleepReport, error) {
	if tenantID == "" || deviceID == "" || date == 0 {
		return nil, fmt.Errorf("tenant_id, device_id and date are required")
	}

	query := `
		SELECT
			report_id::text,
			tenant_id::text,
			device_id::text,
			device_code,
			date,
			start_time,
			end_time,
			epoch_count,
			COALESCE(hypnogram, '') as hypnogram,
			COALESCE(report, '') as report,
			EXTRACT(EPOCH FROM created_at)::bigint as created_at,
			EXTRACT(EPOCH FROM updated_at)::bigint as updated_at
		FROM sleep_report
		WHERE tenant_id = $1::uuid
		  AND device_id = $2::uuid
		  AND date = $3
	`

	var report domain.SleepReport
	err := r.db.QueryRowContext(ctx, query, tenantID, deviceID, date).Scan(
		&report.ReportID,
		&report.TenantID,
		&report.DeviceID,
		&report.DeviceCode,
		&report.Date,
		&report.StartTime,
		&report.EndTime,
		&report.EpochCount,
		&report.Hypnogram,
		&report.Report,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // 报告不存在，返回 nil
		}
		return nil, fmt.Errorf("failed to get sleep report: %w", err)
	}

	return &report, nil
}

// ListReports 查询报告列表（支持分页）
func (r *PostgresSleepReportsRepository) ListReports(ctx context.Context, tenantID, deviceID string, startDate, endDate int, page, size int) ([]*domain.SleepReport, int, error) {
	if tenantID == "" || deviceID == "" {
		return nil, 0, fmt.Errorf("tenant_id and device_id are required")
	}

	// 计算总数
	countQuery := `
		SELECT COUNT(*)
		FROM sleep_report
		WHERE tenant_id = $1::uuid
		  AND device_id = $2::uuid
		  AND date >= $3
		  AND date <= $4
	`
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, tenantID, deviceID, startDate, endDate).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sleep reports: %w", err)
	}

	// 分页参数
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	offset := (page - 1) * size

	// 查询数据
	query := `
		SELECT
			report_id::text,
			tenant_id::text,
			device_id::text,
			device_code,
			date,
			start_time,
			end_time,
			epoch_count,
			COALESCE(hypnogram, '') as hypnogram,
			COALESCE(report, '') as report,
			EXTRACT(EPOCH FROM created_at)::bigint as created_at,
			EXTRACT(EPOCH FROM updated_at)::bigint as updated_at
		FROM sleep_report
		WHERE tenant_id = $1::uuid
		  AND device_id = $2::uuid
		  AND date >= $3
		  AND date <= $4
		ORDER BY date DESC
		LIMIT $5 OFFSET $6
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, deviceID, startDate, endDate, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sleep reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*domain.SleepReport, 0)
	for rows.Next() {
		var report domain.SleepReport
		err := rows.Scan(
			&report.ReportID,
			&report.TenantID,
			&report.DeviceID,
			&report.DeviceCode,
			&report.Date,
			&report.StartTime,
			&report.EndTime,
			&report.EpochCount,
			&report.Hypnogram,
			&report.Report,
			&report.CreatedAt,
			&report.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sleep report: %w", err)
		}
		reports = append(reports, &report)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate sleep reports: %w", err)
	}

	return reports, total, nil
}

// GetValidDates 获取设备的所有有效日期列表
func (r *PostgresSleepReportsRepository) GetValidDates(ctx context.Context, tenantID, deviceID string) ([]int, error) {
	if tenantID == "" || deviceID == "" {
		return nil, fmt.Errorf("tenant_id and device_id are required")
	}

	query := `
		SELECT date
		FROM sleep_report
		WHERE tenant_id = $1::uuid
		  AND device_id = $2::uuid
		ORDER BY date DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get valid dates: %w", err)
	}
	defer rows.Close()

	dates := make([]int, 0)
	for rows.Next() {
		var date int
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		dates = append(dates, date)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dates: %w", err)
	}

	return dates, nil
}

// GetDeviceIDByDeviceCode 根据 device_code 获取 device_id
// device_code 等价于 devices.serial_number 或 devices.uid
func (r *PostgresSleepReportsRepository) GetDeviceIDByDeviceCode(ctx context.Context, tenantID, deviceCode string) (string, error) {
	if tenantID == "" || deviceCode == "" {
		return "", fmt.Errorf("tenant_id and device_code are required")
	}

	// 通过 serial_number 或 uid 匹配 device_code
	query := `
		SELECT device_id::text
		FROM devices
		WHERE tenant_id = $1::uuid
		  AND (serial_number = $2 OR uid = $2)
		  AND status <> 'disabled'
		LIMIT 1
	`

	var deviceID string
	err := r.db.QueryRowContext(ctx, query, tenantID, deviceCode).Scan(&deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("device not found: device_code=%s (not found in devices.serial_number or devices.uid)", deviceCode)
		}
		return "", fmt.Errorf("failed to get device_id by device_code: %w", err)
	}

	return deviceID, nil
}

// SaveReport 保存或更新报告（如果已存在则更新，否则插入）
// 注意：如果 report.DeviceID 为空，会尝试通过 device_code 匹配 devices 表来获取 device_id
func (r *PostgresSleepReportsRepository) SaveReport(ctx context.Context, tenantID string, report *domain.SleepReport) error {
	if tenantID == "" || report == nil {
		return fmt.Errorf("tenant_id and report are required")
	}

	// 如果 device_id 为空，尝试通过 device_code 获取 device_id
	deviceID := report.DeviceID
	if deviceID == "" && report.DeviceCode != "" {
		var err error
		deviceID, err = r.GetDeviceIDByDeviceCode(ctx, tenantID, report.DeviceCode)
		if err != nil {
			return fmt.Errorf("failed to get device_id from device_code: %w", err)
		}
		report.DeviceID = deviceID
	}

	if deviceID == "" {
		return fmt.Errorf("device_id is required (either provide device_id or device_code)")
	}

	// 检查是否已存在
	existsQuery := `
		SELECT EXISTS(
			SELECT 1
			FROM sleep_report
			WHERE tenant_id = $1::uuid
			  AND device_id = $2::uuid
			  AND date = $3
		)
	`
	var exists bool
	err := r.db.QueryRowContext(ctx, existsQuery, tenantID, report.DeviceID, report.Date).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if report exists: %w", err)
	}

	now := time.Now().Unix()

	if exists {
		// 更新
		updateQuery := `
			UPDATE sleep_report
			SET device_code = $4,
				start_time = $5,
				end_time = $6,
				epoch_count = $7,
				hypnogram = $8,
				report = $9,
				updated_at = $10
			WHERE tenant_id = $1::uuid
			  AND device_id = $2::uuid
			  AND date = $3
			RETURNING report_id::text, EXTRACT(EPOCH FROM created_at)::bigint, EXTRACT(EPOCH FROM updated_at)::bigint
		`
		err = r.db.QueryRowContext(ctx, updateQuery,
			tenantID,
			deviceID,
			report.Date,
			report.DeviceCode,
			report.StartTime,
			report.EndTime,
			report.EpochCount,
			report.Hypnogram,
			report.Report,
			time.Unix(now, 0),
		).Scan(&report.ReportID, &report.CreatedAt, &report.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update sleep report: %w", err)
		}
	} else {
		// 插入
		insertQuery := `
			INSERT INTO sleep_report (
				tenant_id,
				device_id,
				device_code,
				date,
				start_time,
				end_time,
				epoch_count,
				hypnogram,
				report,
				created_at,
				updated_at
			) VALUES (
				$1::uuid,
				$2::uuid,
				$3,
				$4,
				$5,
				$6,
				$7,
				$8,
				$9,
				$10,
				$11
			)
			RETURNING report_id::text, EXTRACT(EPOCH FROM created_at)::bigint, EXTRACT(EPOCH FROM updated_at)::bigint
		`
		err = r.db.QueryRowContext(ctx, insertQuery,
			tenantID,
			deviceID,
			report.DeviceCode,
			report.Date,
			report.StartTime,
			report.EndTime,
			report.EpochCount,
			report.Hypnogram,
			report.Report,
			time.Unix(now, 0),
			time.Unix(now, 0),
		).Scan(&report.ReportID, &report.CreatedAt, &report.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert sleep report: %w", err)
		}
	}

	return nil
}
