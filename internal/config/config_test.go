package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.True(t, strings.HasPrefix(cfg.DSN, "root:password@tcp(127.0.0.1:3306)/hellorun?"), cfg.DSN)
	for _, param := range []string{"charset=utf8mb4", "loc=Local", "parseTime=true"} {
		assert.Contains(t, cfg.DSN, param)
	}
	assert.False(t, cfg.Redis.Enable)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, defaultAutosavePerSecond, cfg.Blog.AutosavePerSecond)
	assert.Equal(t, defaultCoverRetentionHours, cfg.Blog.CoverRetentionHours)
	assert.False(t, cfg.Storage.S3.Enabled())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
port: 9000
env: prod
database:
  host: db.internal
  username: blog
  db_name: runs
redis:
  url: cache.internal:6380
storage:
  s3:
    bucket: covers
    access_key_id: AKIA
    secret_access_key: secret
    public_base_url: https://cdn.hellorun.test/
mail:
  provider: Resend
  resend:
    api_key: re_123
blog:
  public_base_url: https://hellorun.test/
  autosave_per_second: 2
allowed_origins: [" https://hellorun.test ", ""]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Contains(t, cfg.DSN, "blog:password@tcp(db.internal:3306)/runs")
	assert.True(t, cfg.Redis.Enable)
	assert.Equal(t, "redis://cache.internal:6380", cfg.RedisURL)
	assert.True(t, cfg.Storage.S3.Enabled())
	assert.Equal(t, "https://cdn.hellorun.test", cfg.Storage.S3.PublicBaseURL)
	assert.Equal(t, "resend", cfg.Mail.Provider)
	assert.Equal(t, "https://hellorun.test", cfg.Blog.PublicBaseURL)
	assert.Equal(t, 2, cfg.Blog.AutosavePerSecond)
	assert.Equal(t, defaultPublicCacheSeconds, cfg.Blog.PublicCacheSeconds)
	assert.Equal(t, []string{"https://hellorun.test"}, cfg.AllowedOrigins)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "port: 8080\nblogg:\n  autosave_per_second: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blogg")
}

func TestLoad_Validation(t *testing.T) {
	_, err := Load(writeConfig(t, "port: 70000\n"))
	assert.ErrorContains(t, err, "invalid port")

	_, err = Load(writeConfig(t, "mail:\n  provider: pigeon\n"))
	assert.ErrorContains(t, err, "invalid mail.provider")

	_, err = Load(writeConfig(t, "blog:\n  cover_retention_hours: -1\n"))
	assert.ErrorContains(t, err, "must not be negative")
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"HELLORUN_PORT":                 "8181",
		"HELLORUN_JWT_SECRET":           " s3cr3t ",
		"HELLORUN_DB_DSN":               "u:p@tcp(db:3306)/x",
		"HELLORUN_REDIS_URL":            "redis://r:6379/1",
		"HELLORUN_S3_SECRET_ACCESS_KEY": "from-env",
		"HELLORUN_ENV":                  "",
	}
	cfg := defaultAppConfig()
	applyEnvOverrides(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	finalize(&cfg)

	assert.Equal(t, 8181, cfg.Port)
	assert.Equal(t, "s3cr3t", cfg.JWTSecret)
	assert.Equal(t, "u:p@tcp(db:3306)/x", cfg.DSN)
	assert.Equal(t, "redis://r:6379/1", cfg.RedisURL)
	assert.Equal(t, "from-env", cfg.Storage.S3.SecretAccessKey)
	assert.Equal(t, "development", cfg.Env)
}

func TestRedisURLValue(t *testing.T) {
	r := normalizeRedisConfig(RedisRuntimeConfig{Host: "cache", Password: "pw", DB: 2})
	assert.Equal(t, "redis://:pw@cache:6379/2", r.URLValue())
}

func TestResolveRuntimePath(t *testing.T) {
	home := t.TempDir()
	getenv := func(k string) string {
		if k == EnvHome {
			return home
		}
		return ""
	}

	assert.Equal(t, filepath.Join(home, "logs"), resolveRuntimePath("", defaultLogsDir, getenv))
	assert.Equal(t, filepath.Join(home, "var", "log"), resolveRuntimePath(" var/log ", defaultLogsDir, getenv))
	abs := filepath.Join(home, "elsewhere")
	assert.Equal(t, abs, resolveRuntimePath(abs+string(filepath.Separator), defaultLogsDir, getenv))
	assert.Equal(t, home, resolveRuntimePath("", "", getenv))
}
