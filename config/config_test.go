package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RENT_LEDGER_CONFIG", "")
	t.Setenv("RENT_LEDGER_PORT", "")
	t.Setenv("RENT_LEDGER_DB", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "rent-ledger.db", cfg.DatabasePath)
	assert.Equal(t, 5*time.Second, cfg.LockTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RENT_LEDGER_CONFIG", "")
	t.Setenv("RENT_LEDGER_PORT", "9090")
	t.Setenv("RENT_LEDGER_DB", "/tmp/ledger.db")
	t.Setenv("RENT_LEDGER_LOCK_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/ledger.db", cfg.DatabasePath)
	assert.Equal(t, 250*time.Millisecond, cfg.LockTimeout)
}

func TestLoad_YAMLFileWinsOverEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 7070
database_path: /var/lib/rent-ledger/ledger.db
log_level: debug
payee:
  account_name: Building Admin
  account_number: "001-234567-8"
  bank_name: First Bank
`), 0o600))

	t.Setenv("RENT_LEDGER_CONFIG", path)
	t.Setenv("RENT_LEDGER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "/var/lib/rent-ledger/ledger.db", cfg.DatabasePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "Building Admin", cfg.Payee.AccountName)
}

func TestLoad_RejectsBadPort(t *testing.T) {
	t.Setenv("RENT_LEDGER_CONFIG", "")
	t.Setenv("RENT_LEDGER_PORT", "70000")

	_, err := Load()
	assert.Error(t, err)
}
