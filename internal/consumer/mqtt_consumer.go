package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"wisefido-sleep-report/internal/config"
	"wisefido-sleep-report/internal/models"
	"wisefido-sleep-report/internal/repository"
	"wisefido-sleep-report/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	mqttcommon "wisefido-sleep-report/internal/common/mqtt"
	rediscommon "wisefido-sleep-report/internal/common/redis"
)

// MQTTConsumer MQTT消息消费者
// 订阅厂家主题，analysis 事件触发报告下载，其余数据发布到 Redis Streams
type MQTTConsumer struct {
	config        *config.Config
	mqttClient    *mqttcommon.Client
	redisClient   *redis.Client
	deviceRepo    *repository.DeviceRepository
	reportService service.SleepReportService
	logger        *zap.Logger
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(
	cfg *config.Config,
	mqttClient *mqttcommon.Client,
	redisClient *redis.Client,
	deviceRepo *repository.DeviceRepository,
	reportService service.SleepReportService,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:        cfg,
		mqttClient:    mqttClient,
		redisClient:   redisClient,
		deviceRepo:    deviceRepo,
		reportService: reportService,
		logger:        logger,
	}
}

// Start 启动消费者
func (c *MQTTConsumer) Start(ctx context.Context) error {
	// 主题格式由厂家定义，在配置中指定
	topic := c.config.Vendor.Topic
	if topic == "" {
		return fmt.Errorf("vendor MQTT topic not configured")
	}

	if err := c.mqttClient.Subscribe(topic, 1, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to vendor topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", topic),
		zap.String("stream", c.config.Report.Stream),
	)

	// 等待上下文取消
	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	topic := c.config.Vendor.Topic
	if topic != "" {
		if err := c.mqttClient.Unsubscribe(topic); err != nil {
			c.logger.Error("Failed to unsubscribe", zap.Error(err))
		}
	}

	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleMessage 处理MQTT消息
// 厂家消息格式：数组，每个元素是一个 ReceivedMessage
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	var messages []models.ReceivedMessage
	if err := json.Unmarshal(payload, &messages); err != nil {
		c.logger.Error("Failed to unmarshal vendor MQTT message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	for _, msg := range messages {
		if err := c.processMessage(&msg); err != nil {
			c.logger.Error("Failed to process message",
				zap.String("device_id", msg.DeviceId),
				zap.String("data_key", msg.DataKey),
				zap.Error(err),
			)
			// 继续处理下一条消息，不中断
		}
	}

	return nil
}

// processMessage 处理单条厂家消息
func (c *MQTTConsumer) processMessage(msg *models.ReceivedMessage) error {
	device, err := c.deviceRepo.GetDeviceByCode(msg.DeviceId)
	if err != nil {
		c.logger.Warn("Device not found",
			zap.String("device_code", msg.DeviceId),
			zap.Error(err),
		)
		return fmt.Errorf("device not found: %s", msg.DeviceId)
	}

	switch msg.DataKey {
	case "analysis":
		// 分析完成事件：触发报告下载
		return c.handleAnalysisEvent(msg, device)
	case "sleepStage":
		return c.handleSleepStageData(msg, device)
	case "connectionStatus":
		return c.handleConnectionStatus(msg, device)
	default:
		c.logger.Debug("Unhandled data key",
			zap.String("data_key", msg.DataKey),
			zap.String("device_id", msg.DeviceId),
		)
		return nil
	}
}

// handleAnalysisEvent 处理分析完成事件，下载该时间段的报告
func (c *MQTTConsumer) handleAnalysisEvent(msg *models.ReceivedMessage, device *repository.Device) error {
	var analysisData models.AnalysisData
	if err := json.Unmarshal(msg.Data, &analysisData); err != nil {
		return fmt.Errorf("failed to unmarshal analysis data: %w", err)
	}

	startTime := analysisData.StartTime
	endTime := analysisData.TimeStamp
	if startTime == 0 || endTime == 0 {
		return fmt.Errorf("analysis event missing time range: device=%s", msg.DeviceId)
	}

	c.logger.Info("Analysis event received, downloading reports",
		zap.String("device_id", device.DeviceID),
		zap.String("device_code", msg.DeviceId),
		zap.Int64("start_time", startTime),
		zap.Int64("end_time", endTime),
	)

	req := service.DownloadReportsRequest{
		TenantID:   device.TenantID,
		DeviceID:   device.DeviceID,
		DeviceCode: msg.DeviceId,
		StartTime:  startTime,
		EndTime:    endTime,
	}
	if err := c.reportService.DownloadReports(context.Background(), req); err != nil {
		return fmt.Errorf("failed to download reports: %w", err)
	}

	return nil
}

// handleSleepStageData 处理实时睡眠阶段数据
func (c *MQTTConsumer) handleSleepStageData(msg *models.ReceivedMessage, device *repository.Device) error {
	var sleepStageData models.SleepStageData
	if err := json.Unmarshal(msg.Data, &sleepStageData); err != nil {
		return fmt.Errorf("failed to unmarshal sleep stage data: %w", err)
	}

	standardizedData := map[string]interface{}{
		"device_id":     device.DeviceID,
		"tenant_id":     device.TenantID,
		"serial_number": device.SerialNumber,
		"uid":           device.UID,
		"device_type":   "SleepPad",
		"raw_data": map[string]interface{}{
			"sleepStage": sleepStageData.SleepStage,
		},
		"timestamp": msg.TimeStamp,
		"topic":     "sleep/sleepStage",
	}

	streamID, err := rediscommon.PublishJSONToStream(context.Background(), c.redisClient, c.config.Report.Stream, standardizedData)
	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}

	c.logger.Info("Published sleep stage data to Redis Streams",
		zap.String("device_id", device.DeviceID),
		zap.String("stream", c.config.Report.Stream),
		zap.String("stream_id", streamID),
	)

	return nil
}

// handleConnectionStatus 处理连接状态数据
func (c *MQTTConsumer) handleConnectionStatus(msg *models.ReceivedMessage, device *repository.Device) error {
	var connData models.ConnectionStatusData
	if err := json.Unmarshal(msg.Data, &connData); err != nil {
		return fmt.Errorf("failed to unmarshal connection status data: %w", err)
	}

	standardizedData := map[string]interface{}{
		"device_id":     device.DeviceID,
		"tenant_id":     device.TenantID,
		"serial_number": device.SerialNumber,
		"uid":           device.UID,
		"device_type":   "SleepPad",
		"raw_data": map[string]interface{}{
			"connectionStatus": connData.ConnectionStatus,
		},
		"timestamp": msg.TimeStamp,
		"topic":     "sleep/connectionStatus",
	}

	streamID, err := rediscommon.PublishJSONToStream(context.Background(), c.redisClient, c.config.Report.Stream, standardizedData)
	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}

	c.logger.Debug("Published connection status to Redis Streams",
		zap.String("device_id", device.DeviceID),
		zap.String("stream_id", streamID),
	)

	return nil
}
