package config

const (
	EnvPrefix = "LIBRARY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "LIBRARY_APP_ENV"
	EnvPort     = "LIBRARY_APP_PORT"
	EnvLogLevel = "LIBRARY_LOG_LEVEL"

	EnvDBDSN  = "LIBRARY_DB_DSN"
	EnvDBHost = "LIBRARY_DB_HOST"
	EnvDBUser = "LIBRARY_DB_USER"
	EnvDBName = "LIBRARY_DB_NAME"

	EnvRedisURL = "LIBRARY_REDIS_URL"

	EnvUseSQLite   = "LIBRARY_USE_SQLITE"
	EnvAutoMigrate = "LIBRARY_AUTO_MIGRATE"

	EnvPenaltyDailyRate    = "LIBRARY_PENALTY_DAILY_RATE"
	EnvOverdueScanInterval = "LIBRARY_CRON_OVERDUE_SCAN_INTERVAL"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:library.db?_foreign_keys=1"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
