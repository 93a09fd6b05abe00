package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func LoggingMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Передаем управление следующему обработчику
		err := c.Next()

		// Ctx strings point into buffers fiber reuses after the handler returns
		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("ip", utils.CopyString(c.IP())),
			zap.String("method", utils.CopyString(c.Method())),
			zap.String("path", utils.CopyString(c.Path())),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", utils.CopyString(c.Get(fiber.HeaderUserAgent))),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		logger.Check(levelFor(status), "request").Write(fields...)
		return err
	}
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
