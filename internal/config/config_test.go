package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	uploads := filepath.Join(t.TempDir(), "uploads")
	dir := writeConfig(t, `
server:
  mode: debug
database:
  driver: sqlite
  path: data/test.db
storage:
  local_path: `+uploads+`
gamification:
  timezone: UTC
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 72*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 100, cfg.Gamification.LeaderboardMaxLimit)
	assert.Equal(t, 6, cfg.OTP.CodeLength)
	assert.Equal(t, int64(5), cfg.Storage.MaxUploadMB)
	assert.Equal(t, "logs/finguard.log", cfg.Log.File)
	assert.Equal(t, 5, cfg.Log.MaxBackups)
	assert.Equal(t, time.UTC, cfg.Gamification.Location())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.ConfigFile)

	_, err = os.Stat(uploads)
	assert.NoError(t, err, "local upload directory is created")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: mysql
storage:
  type: minio
`)
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Mode: "release"},
			Database: DatabaseConfig{Driver: "mysql"},
			JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
		}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.JWT.Secret = "short"
	assert.ErrorContains(t, c.Validate(), "JWT secret is too short")

	c = base()
	c.Database.Driver = "oracle"
	assert.ErrorContains(t, c.Validate(), "unsupported database driver")

	c = base()
	c.Gamification.Timezone = "Mars/Olympus"
	assert.ErrorContains(t, c.Validate(), "invalid gamification timezone")
}

func TestLocationFallback(t *testing.T) {
	assert.Equal(t, time.Local, GamificationConfig{}.Location())
	assert.Equal(t, time.Local, GamificationConfig{Timezone: "Nope/Nowhere"}.Location())
}
