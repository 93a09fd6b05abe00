package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("UNLOCK_CADENCE_DAYS", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.UnlockCadenceDays)
	assert.Equal(t, 8, cfg.ModuleCount)
	assert.Equal(t, []int{0}, cfg.FreeModules)
	assert.Equal(t, "8080", cfg.ServerPort)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("UNLOCK_CADENCE_DAYS", "3")
	t.Setenv("MODULE_COUNT", "12")
	t.Setenv("FREE_MODULES", "0, 5,")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.UnlockCadenceDays)
	assert.Equal(t, 12, cfg.ModuleCount)
	assert.Equal(t, []int{0, 5}, cfg.FreeModules)
	assert.Equal(t, "9090", cfg.ServerPort)
}

func TestLoadConfigBadNumbers(t *testing.T) {
	t.Setenv("MODULE_COUNT", "many")
	t.Setenv("FREE_MODULES", "0,x")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.ModuleCount)
	assert.Equal(t, []int{0}, cfg.FreeModules)
}

func TestUnlockPolicy(t *testing.T) {
	cfg := &Config{UnlockCadenceDays: 5, FreeModules: []int{0, 3}}

	policy := cfg.UnlockPolicy()

	assert.Equal(t, 5, policy.CadenceDays)
	assert.True(t, policy.IsFree(3))
	assert.False(t, policy.IsFree(2))
}

func TestAdminEmails(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", " Boss@X.com ,, ops@x.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"boss@x.com", "ops@x.com"}, cfg.AdminEmails)
	assert.True(t, cfg.IsAdminEmail("boss@x.com"))
	assert.False(t, cfg.IsAdminEmail("a@x.com"))
}
