package middleware_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"selfpaced/backend/config"
	"selfpaced/backend/middleware"
	"selfpaced/backend/models"
	"selfpaced/backend/utils"
)

func TestLoggingMiddlewareLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	app := fiber.New()
	app.Use(middleware.LoggingMiddleware(zap.New(core)))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/missing", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })
	app.Get("/boom", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/missing", "/boom"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	for i, path := range []string{"/ok", "/missing", "/boom"} {
		assert.Equal(t, path, entries[i].ContextMap()["path"])
		assert.Equal(t, "GET", entries[i].ContextMap()["method"])
	}
	assert.EqualValues(t, 404, entries[1].ContextMap()["status"])
}

func TestAuthMiddlewares(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testsecret"}
	userToken, err := utils.GenerateJWTToken(1, "student@academy.test", models.RoleUser, cfg)
	require.NoError(t, err)
	adminToken, err := utils.GenerateJWTToken(2, "boss@academy.test", models.RoleAdmin, cfg)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/optional", middleware.OptionalAuth(cfg), func(c *fiber.Ctx) error {
		if claims := middleware.Claims(c); claims != nil {
			return c.SendString(claims.Email)
		}
		return c.SendString("anonymous")
	})
	app.Get("/admin", middleware.AuthMiddleware(cfg), middleware.AdminMiddleware(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"optional anonymous", "/optional", "", fiber.StatusOK},
		{"optional user", "/optional", userToken, fiber.StatusOK},
		{"optional bad token", "/optional", "nope", fiber.StatusUnauthorized},
		{"admin anonymous", "/admin", "", fiber.StatusUnauthorized},
		{"admin as user", "/admin", userToken, fiber.StatusForbidden},
		{"admin as admin", "/admin", adminToken, fiber.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
