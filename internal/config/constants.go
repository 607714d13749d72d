package config

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "HELLORUN_"

	defaultPort       = 8080
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "hellorun"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultRedisDB    = 0
	defaultLogsDir    = "logs"
	defaultS3Region   = "us-east-1"
	defaultMailFrom   = "helloRun <no-reply@hellorun.local>"

	defaultAutosavePerSecond   = 5
	defaultPublicCacheSeconds  = 15
	defaultCoverRetentionHours = 24 * 7
)
