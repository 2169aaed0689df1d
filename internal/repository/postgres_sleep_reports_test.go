package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-sleep-report/internal/domain"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresSleepReportsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresSleepReportsRepository(db)

	return db, mock, repo
}

func newTestReport() *domain.SleepReport {
	return &domain.SleepReport{
		DeviceCode: "SLP-001",
		Date:       20250820,
		StartTime:  1755640800,
		EndTime:    1755669600,
		EpochCount: 960,
		Hypnogram:  "[0,0,1,2]",
		Report:     "{}",
	}
}

var reportColumns = []string{
	"report_id", "tenant_id", "device_id", "device_code",
	"date", "start_time", "end_time", "epoch_count",
	"hypnogram", "report", "created_at", "updated_at",
}

func TestGetReport_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	tenantID := "00000000-0000-0000-0000-000000000001"
	deviceID := "00000000-0000-0000-0000-000000000002"

	rows := sqlmock.NewRows(reportColumns).
		AddRow(
			"00000000-0000-0000-0000-000000000003", tenantID, deviceID, "SLP-001",
			20250820, int64(1755640800), int64(1755669600), 960,
			"[0,0,1,2]", `{"sleep_time": "..."}`, int64(1755670000), int64(1755670000),
		)

	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID, deviceID, 20250820).
		WillReturnRows(rows)

	report, err := repo.GetReport(context.Background(), tenantID, deviceID, 20250820)

	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "SLP-001", report.DeviceCode)
	assert.Equal(t, 20250820, report.Date)
	assert.Equal(t, 960, report.EpochCount)
	assert.Equal(t, "[0,0,1,2]", report.Hypnogram)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReport_NotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	tenantID := "00000000-0000-0000-0000-000000000001"
	deviceID := "00000000-0000-0000-0000-000000000002"

	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID, deviceID, 20250820).
		WillReturnError(sql.ErrNoRows)

	// 报告不存在返回 (nil, nil)，不返回错误
	report, err := repo.GetReport(context.Background(), tenantID, deviceID, 20250820)

	require.NoError(t, err)
	assert.Nil(t, report)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReport_MissingArgs(t *testing.T) {
	db, _, repo := setupMockDB(t)
	defer db.Close()

	_, err := repo.GetReport(context.Background(), "", "device", 20250820)
	assert.Error(t, err)

	_, err = repo.GetReport(context.Background(), "tenant", "device", 0)
	assert.Error(t, err)
}

func TestListReports_Paged(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	tenantID := "00000000-0000-0000-0000-000000000001"
	deviceID := "00000000-0000-0000-0000-000000000002"

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(tenantID, deviceID, 20250801, 20250831).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	rows := sqlmock.NewRows(reportColumns).
		AddRow(
			"00000000-0000-0000-0000-000000000003", tenantID, deviceID, "SLP-001",
			20250820, int64(1755640800), int64(1755669600), 960,
			"[0,1]", "{}", int64(1755670000), int64(1755670000),
		).
		AddRow(
			"00000000-0000-0000-0000-000000000004", tenantID, deviceID, "SLP-001",
			20250819, int64(1755554400), int64(1755583200), 960,
			"[2,3]", "{}", int64(1755583300), int64(1755583300),
		)

	// 第 2 页、每页 10 条：LIMIT 10 OFFSET 10
	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID, deviceID, 20250801, 20250831, 10, 10).
		WillReturnRows(rows)

	reports, total, err := repo.ListReports(context.Background(), tenantID, deviceID, 20250801, 20250831, 2, 10)

	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, reports, 2)
	assert.Equal(t, 20250820, reports[0].Date)
	assert.Equal(t, 20250819, reports[1].Date)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReports_DefaultPaging(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	tenantID := "00000000-0000-0000-0000-000000000001"
	deviceID := "00000000-0000-0000-0000-000000000002"

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(tenantID, deviceID, 0, 99999999).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	// page/size <= 0 时回退到第 1 页、每页 10 条
	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID, deviceID, 0, 99999999, 10, 0).
		WillReturnRows(sqlmock.NewRows(reportColumns))

	reports, total, err := repo.ListReports(context.Background(), tenantID, deviceID, 0, 99999999, 0, 0)

	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Len(t, reports, 0)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetValidDates(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	tenantID := "00000000-0000-0000-0000-000000000001"
	deviceID := "00000000-0000-0000-0000-000000000002"

	rows := sqlmock.NewRows([]string{"date"}).
		AddRow(20250820).
		AddRow(20250819).
		AddRow(20250817)

	mock.ExpectQuery(`SELECT date`).
		WithArgs(tenantID, deviceID).
		WillReturnRows(rows)

	dates, err := repo.GetValidDates(context.Background(), tenantID, deviceID)

	require.NoError(t, err)
	assert.Equal(t, []int{20250820, 20250819, 20250817}, dates)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDeviceIDByDeviceCode_NotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	tenantID := "00000000-0000-0000-0000-000000000001"

	mock.ExpectQuery(`SELECT device_id`).
		WithArgs(tenantID, "SLP-404").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDeviceIDByDeviceCode(context.Background(), tenantID, "SLP-404")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "device not found")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReport_Insert(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	tenantID := "00000000-0000-0000-0000-000000000001"
	deviceID := "00000000-0000-0000-0000-000000000002"

	report := newTestReport()
	report.TenantID = tenantID
	report.DeviceID = deviceID

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(tenantID, deviceID, report.Date).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectQuery(`INSERT INTO sleep_report`).
		WillReturnRows(sqlmock.NewRows([]string{"report_id", "created_at", "updated_at"}).
			AddRow("00000000-0000-0000-0000-000000000009", int64(1755670000), int64(1755670000)))

	err := repo.SaveReport(context.Background(), tenantID, report)

	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-0000-0000-000000000009", report.ReportID)
	assert.Equal(t, int64(1755670000), report.CreatedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReport_Update(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	tenantID := "00000000-0000-0000-0000-000000000001"
	deviceID := "00000000-0000-0000-0000-000000000002"

	report := newTestReport()
	report.TenantID = tenantID
	report.DeviceID = deviceID

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(tenantID, deviceID, report.Date).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	report.ReportID = ""
	mock.ExpectQuery(`UPDATE sleep_report`).
		WillReturnRows(sqlmock.NewRows([]string{"report_id", "created_at", "updated_at"}).
			AddRow("existing-report-id", int64(1755640800), int64(1755727200)))

	err := repo.SaveReport(context.Background(), tenantID, report)

	require.NoError(t, err)
	// 更新路径同样回填 report_id 和时间戳，缓存回填和事件发布依赖它
	assert.Equal(t, "existing-report-id", report.ReportID)
	assert.Equal(t, int64(1755640800), report.CreatedAt)
	assert.Equal(t, int64(1755727200), report.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReport_ResolvesDeviceCode(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	tenantID := "00000000-0000-0000-0000-000000000001"
	deviceID := "00000000-0000-0000-0000-000000000002"

	report := newTestReport()
	report.TenantID = tenantID
	report.DeviceID = ""
	report.DeviceCode = "SLP-001"

	mock.ExpectQuery(`SELECT device_id`).
		WithArgs(tenantID, "SLP-001").
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}).AddRow(deviceID))

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(tenantID, deviceID, report.Date).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery(`UPDATE sleep_report`).
		WillReturnRows(sqlmock.NewRows([]string{"report_id", "created_at", "updated_at"}).
			AddRow("existing-report-id", int64(1755640800), int64(1755727200)))

	err := repo.SaveReport(context.Background(), tenantID, report)

	require.NoError(t, err)
	assert.Equal(t, deviceID, report.DeviceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReport_NoDeviceID(t *testing.T) {
	db, _, repo := setupMockDB(t)
	defer db.Close()

	report := newTestReport()
	report.DeviceID = ""
	report.DeviceCode = ""

	err := repo.SaveReport(context.Background(), "00000000-0000-0000-0000-000000000001", report)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "device_id is required")
}
