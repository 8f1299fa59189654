package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Handler.ServerAddr)
	assert.Equal(t, "https://www.vendus.pt/ws/v1.1/", cfg.Service.Vendus.APIURL)
	assert.Equal(t, 30*time.Second, cfg.Service.Vendus.Timeout)
	assert.Equal(t, 20, cfg.Service.PerPage)
	assert.False(t, cfg.Service.BackfillReferences)
	assert.Equal(t, "PT", cfg.Service.SAFT.Country)
	assert.Equal(t, "single", cfg.Service.SAFT.LineMode)
	assert.Equal(t, "info", cfg.Logger.LogLevel)
	assert.Equal(t, 10*time.Minute, cfg.Lock.TTL)
	assert.Empty(t, cfg.Lock.RedisAddr)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendussync.yaml")
	err := os.WriteFile(path, []byte(`
vendus:
  api_key: from-file
  per_page: 50
  backfill_references: true
saft:
  line_mode: split
database:
  dsn: postgres://localhost/vendus
redis:
  addr: localhost:6379
`), 0o600)
	require.NoError(t, err)

	t.Setenv("VENDUSSYNC_VENDUS_API_KEY", "from-env")
	t.Setenv("VENDUSSYNC_LOCK_TTL", "90s")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Service.Vendus.APIKey)
	assert.Equal(t, 50, cfg.Service.PerPage)
	assert.True(t, cfg.Service.BackfillReferences)
	assert.Equal(t, "split", cfg.Service.SAFT.LineMode)
	assert.Equal(t, "postgres://localhost/vendus", cfg.Store.DBDsn)
	assert.Equal(t, "localhost:6379", cfg.Lock.RedisAddr)
	assert.Equal(t, 90*time.Second, cfg.Lock.TTL)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendussync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vendus: [unclosed"), 0o600))

	_, err := Load(NewViper(), path)
	assert.Error(t, err)
}
