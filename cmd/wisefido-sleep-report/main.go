package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-sleep-report/internal/config"
	"wisefido-sleep-report/internal/consumer"
	httpapi "wisefido-sleep-report/internal/http"
	"wisefido-sleep-report/internal/repository"
	"wisefido-sleep-report/internal/service"

	"go.uber.org/zap"

	"wisefido-sleep-report/internal/common/database"
	"wisefido-sleep-report/internal/common/logger"
	mqttcommon "wisefido-sleep-report/internal/common/mqtt"
	rediscommon "wisefido-sleep-report/internal/common/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-sleep-report")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("Starting wisefido-sleep-report service",
		zap.String("http_addr", cfg.HTTP.Addr),
		zap.String("mqtt_broker", cfg.MQTT.Broker),
		zap.String("mqtt_topic", cfg.Vendor.Topic),
		zap.String("stream", cfg.Report.Stream),
	)

	// 数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Redis
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		zlog.Fatal("Failed to connect to redis", zap.Error(err))
	}
	kv := service.NewRedisKVStore(redisClient)

	// MQTT
	mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to MQTT", zap.Error(err))
	}

	// Repository
	reportsRepo := repository.NewPostgresSleepReportsRepository(db)
	deviceRepo := repository.NewDeviceRepository(db, zlog)

	// Service
	reportService := service.NewSleepReportService(reportsRepo, db, kv, time.Duration(cfg.Report.CacheTTL)*time.Second, zlog)
	reportService.SetVendorClient(service.NewVendorClient(cfg.Vendor.BaseURL, cfg.Vendor.AppID, cfg.Vendor.SecretKey, zlog))
	reportService.SetStreamPublisher(redisClient, cfg.Report.Stream)

	// HTTP
	handler := httpapi.NewSleepReportHandler(reportService, db, zlog)
	router := httpapi.NewRouter(zlog)
	router.RegisterSleepReportRoutes(handler)
	srv := service.NewServer(cfg.HTTP.Addr, router, zlog)

	// MQTT consumer
	mqttConsumer := consumer.NewMQTTConsumer(cfg, mqttClient, redisClient, deviceRepo, reportService, zlog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Start()
	}()
	go func() {
		errCh <- mqttConsumer.Start(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zlog.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		if err != nil {
			zlog.Error("Component exited with error", zap.Error(err))
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := mqttConsumer.Stop(shutdownCtx); err != nil {
		zlog.Error("Error stopping MQTT consumer", zap.Error(err))
	}
	mqttClient.Disconnect()
	_ = srv.Stop(shutdownCtx)
	_ = rediscommon.Close(redisClient)
	_ = database.Close(db)

	zlog.Info("Service stopped")
}
