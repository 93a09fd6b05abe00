package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"selfpaced/backend/config"
	"selfpaced/backend/routes"
	"selfpaced/backend/utils"
)

const adminEmail = "boss@academy.test"

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:         "testsecret",
		ServerPort:        "8080",
		UnlockCadenceDays: 7,
		ModuleCount:       8,
		FreeModules:       []int{0},
		AdminEmails:       []string{adminEmail},
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := utils.InitSQLite("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return &testEnv{app: routes.NewApp(db, cfg, zap.NewNop()), db: db, cfg: cfg}
}

// do sends a JSON request and decodes the JSON response into a map.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var result map[string]interface{}
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&result)
	}
	return resp.StatusCode, result
}

func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()

	status, result := e.do(t, "POST", "/api/auth/register", map[string]interface{}{
		"email":    email,
		"password": "password123",
	}, "")
	require.Equal(t, fiber.StatusOK, status, "register %s: %v", email, result)
	return result["token"].(string)
}
