package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// 检查默认值
	if cfg.Database.Host != "localhost" {
		t.Errorf("Expected DB_HOST default 'localhost', got '%s'", cfg.Database.Host)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Expected DB_PORT default 5432, got %d", cfg.Database.Port)
	}

	if cfg.Database.Database != "owlrd" {
		t.Errorf("Expected DB_NAME default 'owlrd', got '%s'", cfg.Database.Database)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected REDIS_ADDR default 'localhost:6379', got '%s'", cfg.Redis.Addr)
	}

	if cfg.HTTP.Addr != ":8085" {
		t.Errorf("Expected HTTP_ADDR default ':8085', got '%s'", cfg.HTTP.Addr)
	}

	if cfg.Report.Stream != "sleep-report:events" {
		t.Errorf("Expected REPORT_STREAM default 'sleep-report:events', got '%s'", cfg.Report.Stream)
	}

	if cfg.Report.CacheTTL != 600 {
		t.Errorf("Expected REPORT_CACHE_TTL default 600, got %d", cfg.Report.CacheTTL)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Expected LOG_LEVEL default 'info', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_USER", "test-user")
	os.Setenv("REDIS_ADDR", "redis:6379")
	os.Setenv("VENDOR_HTTP_ADDRESS", "http://vendor.example.com")
	os.Setenv("VENDOR_MQTT_TOPIC", "sleep-device-123")
	os.Setenv("REPORT_CACHE_TTL", "120")
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Database.Host != "test-host" {
		t.Errorf("Expected DB_HOST 'test-host', got '%s'", cfg.Database.Host)
	}

	if cfg.Database.User != "test-user" {
		t.Errorf("Expected DB_USER 'test-user', got '%s'", cfg.Database.User)
	}

	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("Expected REDIS_ADDR 'redis:6379', got '%s'", cfg.Redis.Addr)
	}

	if cfg.Vendor.BaseURL != "http://vendor.example.com" {
		t.Errorf("Expected VENDOR_HTTP_ADDRESS 'http://vendor.example.com', got '%s'", cfg.Vendor.BaseURL)
	}

	if cfg.Vendor.Topic != "sleep-device-123" {
		t.Errorf("Expected VENDOR_MQTT_TOPIC 'sleep-device-123', got '%s'", cfg.Vendor.Topic)
	}

	if cfg.Report.CacheTTL != 120 {
		t.Errorf("Expected REPORT_CACHE_TTL 120, got %d", cfg.Report.CacheTTL)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected LOG_LEVEL 'debug', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_InvalidCacheTTLFallsBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("REPORT_CACHE_TTL", "not-a-number")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Report.CacheTTL != 600 {
		t.Errorf("Expected fallback REPORT_CACHE_TTL 600, got %d", cfg.Report.CacheTTL)
	}
}
