package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig определяет конфигурацию для логгера
type LoggerConfig struct {
	// Формат логов (text/json)
	Format string
	// Окружение (local, production, ...)
	Env string
	// Уровень логирования (debug, info, warn, error)
	Level string
}

// InitLogger инициализирует и возвращает логгер
func InitLogger(config ...LoggerConfig) (*zap.Logger, error) {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	var zcfg zap.Config
	if cfg.Format == "json" || cfg.Env == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zcfg.Build(zap.Fields(zap.String("service", "selfpaced")))
}
