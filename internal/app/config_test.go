package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "0 9 * * *", cfg.RecoveryScanCron)
	tol, err := cfg.Tolerance()
	require.NoError(t, err)
	assert.Equal(t, "10", tol.String())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadTolerance(t *testing.T) {
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("SETTLEMENT_TOLERANCE", "-1")

	_, err := LoadConfig()
	assert.Error(t, err)
}
