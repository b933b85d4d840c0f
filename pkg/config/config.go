package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	RateLimit    RateLimitConfig
	Penalty      PenaltyConfig
	Cron         CronConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if cfg.Penalty.DailyRate.IsNegative() {
		return nil, fmt.Errorf("%s must not be negative", EnvPenaltyDailyRate)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LIBRARY_APP_ENV" required:"true"`
	Port         string `envconfig:"LIBRARY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LIBRARY_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LIBRARY_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"LIBRARY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// IsSQLite reports whether the store runs on the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type DBConfig struct {
	DSN    string `envconfig:"LIBRARY_DB_DSN"`
	Driver string `envconfig:"LIBRARY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LIBRARY_DB_HOST"`
	LegacyPort     int    `envconfig:"LIBRARY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LIBRARY_DB_USER"`
	LegacyPassword string `envconfig:"LIBRARY_DB_PASSWORD"`
	LegacyName     string `envconfig:"LIBRARY_DB_NAME"`
	LegacySSLMode  string `envconfig:"LIBRARY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LIBRARY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LIBRARY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LIBRARY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LIBRARY_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"LIBRARY_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

// RedisConfig is optional; an empty URL and address disables the redis-backed rate limiter.
type RedisConfig struct {
	URL          string        `envconfig:"LIBRARY_REDIS_URL"`
	Address      string        `envconfig:"LIBRARY_REDIS_ADDR"`
	Password     string        `envconfig:"LIBRARY_REDIS_PASSWORD"`
	DB           int           `envconfig:"LIBRARY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LIBRARY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LIBRARY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LIBRARY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LIBRARY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LIBRARY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LIBRARY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LIBRARY_AUTO_MIGRATE" default:"false"`
}

type RateLimitConfig struct {
	WriteWindow time.Duration `envconfig:"LIBRARY_RATE_LIMIT_WRITE_WINDOW" default:"1m"`
	WriteLimit  int           `envconfig:"LIBRARY_RATE_LIMIT_WRITE_LIMIT" default:"60"`

	// TrustedProxies counts reverse proxies appending to X-Forwarded-For.
	TrustedProxies int `envconfig:"LIBRARY_RATE_LIMIT_TRUSTED_PROXIES" default:"0"`
}

type PenaltyConfig struct {
	DailyRate decimal.Decimal `envconfig:"LIBRARY_PENALTY_DAILY_RATE" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"LIBRARY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type CronConfig struct {
	OverdueScanInterval time.Duration `envconfig:"LIBRARY_CRON_OVERDUE_SCAN_INTERVAL" default:"1h"`
	JobTimeout          time.Duration `envconfig:"LIBRARY_CRON_JOB_TIMEOUT" default:"5m"`
	LockTTL             time.Duration `envconfig:"LIBRARY_CRON_LOCK_TTL" default:"30m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
