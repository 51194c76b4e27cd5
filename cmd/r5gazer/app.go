package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/r5gazer/internal/api/geocoder"
	"github.com/langchou/r5gazer/internal/api/renault"
	"github.com/langchou/r5gazer/internal/config"
	"github.com/langchou/r5gazer/internal/repository"
	"github.com/langchou/r5gazer/internal/service"
	"github.com/langchou/r5gazer/pkg/ws"
)

// newDashboardService 组装仪表盘服务，wsHub 可为 nil
func newDashboardService(cfg *config.Config, logger *zap.Logger, wsHub *ws.Hub) *service.DashboardService {
	// 创建 Renault API 客户端
	renaultClient := renault.NewClient(renault.Options{
		GigyaURL:       cfg.GigyaURL,
		GigyaAPIKey:    cfg.GigyaAPIKey,
		KamereonURL:    cfg.KamereonURL,
		KamereonAPIKey: cfg.KamereonAPIKey,
		Country:        cfg.RenaultCountry,
		Timeout:        cfg.HTTPTimeout,
	}, logger)

	// 逆地理编码（可选）
	var geo service.Geocoder
	if cfg.GeocoderEnabled {
		geo = geocoder.NewClient(cfg.NominatimURL, languageFromLocale(cfg.RenaultLocale), logger)
	}

	return service.NewDashboardService(
		cfg,
		logger,
		renaultClient,
		geo,
		repository.NewSnapshotRepository(),
		wsHub,
	)
}

// languageFromLocale fr_FR -> fr
func languageFromLocale(locale string) string {
	for i, r := range locale {
		if r == '_' || r == '-' {
			return locale[:i]
		}
	}
	if locale == "" {
		return "fr"
	}
	return locale
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}
