package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/r5gazer/internal/api/handlers"
	"github.com/langchou/r5gazer/internal/config"
	"github.com/langchou/r5gazer/internal/publish"
	"github.com/langchou/r5gazer/pkg/ws"
)

func runServer(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting r5gazer", zap.String("port", cfg.ServerPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)
	go wsHub.Run()

	dashboardService := newDashboardService(cfg, logger, wsHub)

	// 新连接先收到当前快照
	wsHub.SetInitDataProvider(func() *ws.InitData {
		data := &ws.InitData{Status: dashboardService.GetStatus()}
		if snap, err := dashboardService.Snapshot(ctx); err == nil {
			data.Snapshot = snap
		}
		return data
	})

	// 订阅快照更新并发布到 MQTT
	if cfg.MQTTURL != "" {
		mqttClient, err := publish.NewClient(cfg.MQTTURL, "r5gazer-"+cfg.RenaultCountry, logger)
		if err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		defer mqttClient.Disconnect()

		publisher := publish.NewPublisher(mqttClient, cfg.MQTTTopicPrefix, logger)
		go publisher.Run(ctx, dashboardService.Subscribe())
	}

	dashboardService.Start(ctx)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handlers.NewHandler(logger, dashboardService, wsHub).RegisterRoutes(router)

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error("Failed to start server", zap.Error(err))
		dashboardService.Stop()
		return err
	}

	logger.Info("Shutting down server...")

	// 停止服务
	dashboardService.Stop()
	cancel()

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}

// corsMiddleware CORS 中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
