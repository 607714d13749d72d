package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at configPath, applies HELLORUN_* environment overrides
// and validates the result. A missing file is not an error; defaults and the
// environment are used instead.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	raw := rawAppConfig{}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if raw, err = parse(content); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	applyRawAppConfig(&cfg, raw)
	applyEnvOverrides(&cfg, os.LookupEnv)
	finalize(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return &cfg, nil
}

func parse(content []byte) (rawAppConfig, error) {
	raw := rawAppConfig{}
	if len(bytes.TrimSpace(content)) == 0 {
		return raw, nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return raw, err
	}
	return raw, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Storage: StorageConfig{S3: S3Config{Region: defaultS3Region}},
		Mail:    MailConfig{From: defaultMailFrom},
		Blog: BlogConfig{
			AutosavePerSecond:   defaultAutosavePerSecond,
			PublicCacheSeconds:  defaultPublicCacheSeconds,
			CoverRetentionHours: defaultCoverRetentionHours,
		},
		Paths: RuntimePathsConfig{Logs: defaultLogsDir},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)

	s3 := raw.Storage.S3
	if s3.Region == "" {
		s3.Region = cfg.Storage.S3.Region
	}
	cfg.Storage.S3 = s3

	if v := strings.TrimSpace(raw.Mail.Provider); v != "" {
		cfg.Mail.Provider = v
	}
	if v := strings.TrimSpace(raw.Mail.From); v != "" {
		cfg.Mail.From = v
	}
	cfg.Mail.SMTP = raw.Mail.SMTP
	cfg.Mail.Resend = raw.Mail.Resend

	if v := strings.TrimSpace(raw.Blog.PublicBaseURL); v != "" {
		cfg.Blog.PublicBaseURL = v
	}
	if raw.Blog.AutosavePerSecond != 0 {
		cfg.Blog.AutosavePerSecond = raw.Blog.AutosavePerSecond
	}
	if raw.Blog.PublicCacheSeconds != 0 {
		cfg.Blog.PublicCacheSeconds = raw.Blog.PublicCacheSeconds
	}
	if raw.Blog.CoverRetentionHours != 0 {
		cfg.Blog.CoverRetentionHours = raw.Blog.CoverRetentionHours
	}

	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if len(raw.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = raw.AllowedOrigins
	}
	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TZ); v != "" && cfg.Timezone == "" {
		cfg.Timezone = v
	}
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawAppConfig) DatabaseRuntimeConfig {
	db := raw.Database
	if v := strings.TrimSpace(raw.DSN); v != "" {
		current.DSN = v
	}
	if v := strings.TrimSpace(db.DSN); v != "" {
		current.DSN = v
	}
	if v := strings.TrimSpace(db.Host); v != "" {
		current.Host = v
	}
	if db.Port != 0 {
		current.Port = db.Port
	}
	if v := firstNonEmpty(db.User, db.Username); v != "" {
		current.User = v
	}
	if v := strings.TrimSpace(db.Password); v != "" {
		current.Password = v
	}
	if v := firstNonEmpty(db.Name, db.DBName); v != "" {
		current.Name = v
	}
	if v := strings.TrimSpace(db.Charset); v != "" {
		current.Charset = v
	}
	if db.ParseTime != nil {
		current.ParseTime = *db.ParseTime
	}
	if v := strings.TrimSpace(db.Loc); v != "" {
		current.Loc = v
	}
	if len(db.Params) > 0 {
		current.Params = copyStringMap(db.Params)
	}
	return current
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	r := raw.Redis
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		current.URL = v
		current.Enable = true
	}
	if v := strings.TrimSpace(r.URL); v != "" {
		current.URL = v
		current.Enable = true
	}
	if r.Enable != nil {
		current.Enable = *r.Enable
	}
	if v := strings.TrimSpace(r.Host); v != "" {
		current.Host = v
	}
	if r.Port != 0 {
		current.Port = r.Port
	}
	if v := strings.TrimSpace(r.Username); v != "" {
		current.Username = v
	}
	if v := strings.TrimSpace(r.Password); v != "" {
		current.Password = v
	}
	if r.DB != nil {
		current.DB = *r.DB
	}
	if r.TLS != nil {
		current.TLS = *r.TLS
	}
	if len(r.Params) > 0 {
		current.Params = copyStringMap(r.Params)
	}
	return current
}

// applyEnvOverrides lets deployments keep secrets out of the YAML file.
func applyEnvOverrides(cfg *AppConfig, lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("ENV", &cfg.Env)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("DB_DSN", &cfg.Database.DSN)
	str("S3_BUCKET", &cfg.Storage.S3.Bucket)
	str("S3_ACCESS_KEY_ID", &cfg.Storage.S3.AccessKeyID)
	str("S3_SECRET_ACCESS_KEY", &cfg.Storage.S3.SecretAccessKey)
	str("RESEND_API_KEY", &cfg.Mail.Resend.APIKey)
	str("SMTP_PASSWORD", &cfg.Mail.SMTP.Password)
	str("LOG_DIR", &cfg.Paths.Logs)

	if v, ok := lookup(EnvPrefix + "REDIS_URL"); ok && strings.TrimSpace(v) != "" {
		cfg.Redis.URL = strings.TrimSpace(v)
		cfg.Redis.Enable = true
	}
	if v, ok := lookup(EnvPrefix + "PORT"); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Port = port
		}
	}
}

func finalize(cfg *AppConfig) {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.Storage.S3 = normalizeS3Config(cfg.Storage.S3)
	cfg.Mail.Provider = strings.ToLower(strings.TrimSpace(cfg.Mail.Provider))
	cfg.Blog.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Blog.PublicBaseURL), "/")
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.DSN = cfg.Database.DSNValue()
	if cfg.Redis.Enable {
		cfg.RedisURL = cfg.Redis.URLValue()
	}
}

func validate(cfg *AppConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", cfg.Port)
	}
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return fmt.Errorf("invalid database.port %d, expected 1-65535", cfg.Database.Port)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", cfg.Redis.Port)
	}
	if cfg.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", cfg.Redis.DB)
	}
	switch cfg.Mail.Provider {
	case "", "smtp", "resend":
	default:
		return fmt.Errorf("invalid mail.provider %q, expected smtp or resend", cfg.Mail.Provider)
	}
	if cfg.Blog.AutosavePerSecond < 0 || cfg.Blog.PublicCacheSeconds < 0 || cfg.Blog.CoverRetentionHours < 0 {
		return errors.New("blog limits must not be negative")
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env == "development"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
