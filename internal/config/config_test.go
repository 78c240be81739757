package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "does-not-exist.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.Equal(t, "treasury", cfg.Engine.Treasury)
	assert.Zero(t, cfg.Engine.TransferFeePct, "policy defaults applied later by fees.Params")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "does-not-exist.json")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_CONNS", "10")
	t.Setenv("ENGINE_TREASURY", "vault")
	t.Setenv("ENGINE_PAYOUT_AMOUNT", "5000")
	t.Setenv("ENGINE_TRANSFER_FEE_PCT", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, "vault", cfg.Engine.Treasury)
	assert.Equal(t, uint64(5000), cfg.Engine.PayoutAmount)
	assert.Equal(t, uint64(2), cfg.Engine.TransferFeePct)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.json"
	content := `{"server":{"port":7070},"engine":{"treasury":"fees","mint_fee_min_pct":30}}`
	require.NoError(t, writeFile(path, content))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "fees", cfg.Engine.Treasury)
	assert.Equal(t, uint64(30), cfg.Engine.MintFeeMinPct)
}
