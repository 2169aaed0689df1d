package service

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// VendorToken 厂家 API 认证 Token
type VendorToken struct {
	AppId     string `json:"appId"`
	SecureKey string `json:"secureKey"`
}

// VendorRequest 厂家 API 请求
type VendorRequest struct {
	Token *VendorToken   `json:"token"`
	Data  map[string]any `json:"data"`
}

// VendorResponse 厂家 API 响应
type VendorResponse struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// SleepSession 厂家返回的一段睡眠记录
// sleepStages 为 30 秒 epoch 的阶段编码序列（0=Wake, 1=Light, 2=Deep, 3=REM）
type SleepSession struct {
	DeviceCode  string `json:"deviceCode"`
	StartTime   int64  `json:"startTime"` // Unix 时间戳（秒）
	EndTime     int64  `json:"endTime"`   // Unix 时间戳（秒），可能与 startTime 相同（厂家只给开始时间）
	SleepStages []int  `json:"sleepStages"`
}

// VendorClient 厂家睡眠数据 API 客户端
type VendorClient struct {
	httpClient *resty.Client
	token      *VendorToken
	logger     *zap.Logger
	mu         sync.RWMutex
}

// NewVendorClient 创建厂家客户端
func NewVendorClient(baseURL, appID, secretKey string, logger *zap.Logger) *VendorClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second). // 报告下载可能需要较长时间
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	token := &VendorToken{
		AppId:     appID,
		SecureKey: secretKey,
	}

	return &VendorClient{
		httpClient: client,
		token:      token,
		logger:     logger,
	}
}

// FetchSleepSessions 获取设备在指定时间段内的睡眠记录
func (c *VendorClient) FetchSleepSessions(deviceID, deviceCode string, startTime, endTime int64) ([]SleepSession, error) {
	request := VendorRequest{
		Token: c.token,
		Data: map[string]any{
			"userId":     deviceID,
			"deviceCode": deviceCode,
			"startTime":  startTime,
			"endTime":    endTime,
		},
	}

	c.logger.Info("Calling vendor API: getSleepSessions",
		zap.String("device_id", deviceID),
		zap.String("device_code", deviceCode),
		zap.Int64("start_time", startTime),
		zap.Int64("end_time", endTime),
	)

	var response VendorResponse
	resp, err := c.httpClient.R().
		SetBody(request).
		SetResult(&response).
		Post("/sleep/getSleepSessions")

	if err != nil {
		c.logger.Error("Vendor API call failed",
			zap.Error(err),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("failed to call vendor API: %w", err)
	}

	if response.Status != 0 {
		c.logger.Error("Vendor API returned error",
			zap.Int("status", response.Status),
			zap.String("msg", response.Msg),
		)
		return nil, fmt.Errorf("vendor API error: %s (status: %d)", response.Msg, response.Status)
	}

	var sessions []SleepSession
	if err := json.Unmarshal(response.Data, &sessions); err != nil {
		c.logger.Error("Failed to unmarshal vendor API response",
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to unmarshal sessions: %w", err)
	}

	c.logger.Info("Successfully retrieved sessions from vendor API",
		zap.Int("session_count", len(sessions)),
	)

	return sessions, nil
}
