package config

import (
	"os"
	"strconv"

	"wisefido-sleep-report/internal/common/config"
)

// Config 睡眠报告服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	HTTP struct {
		Addr string
	}

	// 床旁设备厂家服务配置
	Vendor struct {
		BaseURL   string // 厂家 HTTP API 地址
		AppID     string // App ID
		SecretKey string // Secret Key
		Topic     string // MQTT 主题（厂家提供，如 "sleep-device-57136"）
	}

	// 报告生成配置
	Report struct {
		Stream   string // 报告生成事件输出流，如 "sleep-report:events"
		CacheTTL int    // 报告缓存 TTL（秒），默认 600
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "owlrd")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-sleep-report")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8085")

	// 厂家服务配置
	cfg.Vendor.BaseURL = getEnv("VENDOR_HTTP_ADDRESS", "")
	cfg.Vendor.AppID = getEnv("VENDOR_APP_ID", "")
	cfg.Vendor.SecretKey = getEnv("VENDOR_SECRET_KEY", "")
	cfg.Vendor.Topic = getEnv("VENDOR_MQTT_TOPIC", "")

	cfg.Report.Stream = getEnv("REPORT_STREAM", "sleep-report:events")
	ttlStr := getEnv("REPORT_CACHE_TTL", "600")
	if v, err := strconv.Atoi(ttlStr); err == nil && v > 0 {
		cfg.Report.CacheTTL = v
	} else {
		cfg.Report.CacheTTL = 600
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
