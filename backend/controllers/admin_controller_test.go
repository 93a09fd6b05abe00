package controllers_test

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminOverrideUnlocksModule(t *testing.T) {
	env := setup(t)
	adminToken := env.register(t, adminEmail)
	env.register(t, "student@academy.test")

	status, result := env.do(t, "POST", "/admin/progress", map[string]interface{}{
		"email":     "student@academy.test",
		"moduloNum": 5,
		"unlock":    true,
	}, adminToken)
	require.Equal(t, fiber.StatusOK, status, "%v", result)
	assert.Equal(t, true, result["success"])

	_, result = env.do(t, "GET", "/unlock-status?email=student@academy.test", nil, "")
	mods := modulos(t, result)
	assert.Equal(t, true, mods[5]["unlocked"])
	assert.Equal(t, float64(0), mods[5]["daysRemaining"])
	assert.Equal(t, false, mods[4]["unlocked"])

	// Re-lock puts the module back on its schedule.
	status, _ = env.do(t, "POST", "/admin/progress", map[string]interface{}{
		"email":     "student@academy.test",
		"moduloNum": 5,
		"unlock":    false,
	}, adminToken)
	require.Equal(t, fiber.StatusOK, status)

	_, result = env.do(t, "GET", "/unlock-status?email=student@academy.test", nil, "")
	assert.Equal(t, false, modulos(t, result)[5]["unlocked"])
}

func TestAdminOverrideAccess(t *testing.T) {
	env := setup(t)
	userToken := env.register(t, "student@academy.test")
	body := map[string]interface{}{
		"email":     "student@academy.test",
		"moduloNum": 1,
		"unlock":    true,
	}

	status, _ := env.do(t, "POST", "/admin/progress", body, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = env.do(t, "POST", "/admin/progress", body, userToken)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestAdminOverrideValidation(t *testing.T) {
	env := setup(t)
	adminToken := env.register(t, adminEmail)

	status, result := env.do(t, "POST", "/admin/progress", map[string]interface{}{
		"email":  "student@academy.test",
		"unlock": true,
	}, adminToken)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, result["details"], "moduloNum")

	status, _ = env.do(t, "POST", "/admin/progress", map[string]interface{}{
		"email":     "student@academy.test",
		"moduloNum": 8,
		"unlock":    true,
	}, adminToken)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.do(t, "POST", "/admin/progress", map[string]interface{}{
		"email":     "student@academy.test",
		"moduloNum": -1,
		"unlock":    true,
	}, adminToken)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestAdminGetUserProgress(t *testing.T) {
	env := setup(t)
	adminToken := env.register(t, adminEmail)
	env.register(t, "student@academy.test")
	env.do(t, "POST", "/sync-progress", map[string]interface{}{
		"email":    "student@academy.test",
		"progress": map[string]bool{"lesson1": true},
	}, "")
	env.do(t, "POST", "/admin/progress", map[string]interface{}{
		"email":     "student@academy.test",
		"moduloNum": 3,
		"unlock":    true,
	}, adminToken)

	status, result := env.do(t, "GET", "/admin/progress?email=student@academy.test", nil, adminToken)
	require.Equal(t, fiber.StatusOK, status)

	data := result["data"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"lesson1": true}, data["progress"])
	assert.Equal(t, map[string]interface{}{"3": true}, data["overrides"])
	assert.NotEmpty(t, data["enrolledAt"])

	status, _ = env.do(t, "GET", "/admin/progress", nil, adminToken)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAdminSetEnrollment(t *testing.T) {
	env := setup(t)
	adminToken := env.register(t, adminEmail)

	enrolledAt := time.Now().Add(-15 * 24 * time.Hour).UTC()
	status, result := env.do(t, "POST", "/admin/enrollment", map[string]interface{}{
		"email":      "student@academy.test",
		"enrolledAt": enrolledAt.Format(time.RFC3339),
	}, adminToken)
	require.Equal(t, fiber.StatusOK, status, "%v", result)

	_, result = env.do(t, "GET", "/unlock-status?email=student@academy.test", nil, "")
	mods := modulos(t, result)
	assert.Equal(t, true, mods[2]["unlocked"])
	assert.Equal(t, false, mods[3]["unlocked"])

	status, result = env.do(t, "POST", "/admin/enrollment", map[string]interface{}{
		"email": "student@academy.test",
	}, adminToken)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, result["details"], "enrolledAt")
}
