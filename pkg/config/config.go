package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Locks        LocksConfig
	Cron         CronConfig
	Outbox       OutboxConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Locks.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BOOKTIFI_APP_ENV" required:"true"`
	Port         string `envconfig:"BOOKTIFI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOOKTIFI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOOKTIFI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BOOKTIFI_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BOOKTIFI_DB_DSN"`
	Driver string `envconfig:"BOOKTIFI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOOKTIFI_DB_HOST"`
	LegacyPort     int    `envconfig:"BOOKTIFI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOOKTIFI_DB_USER"`
	LegacyPassword string `envconfig:"BOOKTIFI_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOOKTIFI_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOOKTIFI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOOKTIFI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOOKTIFI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOOKTIFI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOOKTIFI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOOKTIFI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BOOKTIFI_REDIS_ADDR"`
	Password     string        `envconfig:"BOOKTIFI_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOOKTIFI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOOKTIFI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOOKTIFI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOOKTIFI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOOKTIFI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOOKTIFI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// LocksConfig bounds the TTL a checkout session may put on a capacity hold.
type LocksConfig struct {
	DefaultTTL time.Duration `envconfig:"BOOKTIFI_LOCK_DEFAULT_TTL" default:"5m"`
	MinTTL     time.Duration `envconfig:"BOOKTIFI_LOCK_MIN_TTL" default:"30s"`
	MaxTTL     time.Duration `envconfig:"BOOKTIFI_LOCK_MAX_TTL" default:"30m"`

	// ExpiredRetention is how long expired lock rows are kept before the
	// cleanup job deletes them. Storage hygiene only; expired locks are
	// already excluded from every capacity calculation.
	ExpiredRetention time.Duration `envconfig:"BOOKTIFI_LOCK_EXPIRED_RETENTION" default:"24h"`
}

func (l LocksConfig) validate() error {
	if l.MinTTL <= 0 || l.MaxTTL <= 0 || l.DefaultTTL <= 0 {
		return fmt.Errorf("lock TTL bounds must be positive")
	}
	if l.MinTTL > l.MaxTTL {
		return fmt.Errorf("lock min TTL %v exceeds max TTL %v", l.MinTTL, l.MaxTTL)
	}
	if l.DefaultTTL < l.MinTTL || l.DefaultTTL > l.MaxTTL {
		return fmt.Errorf("lock default TTL %v outside [%v, %v]", l.DefaultTTL, l.MinTTL, l.MaxTTL)
	}
	return nil
}

// Clamp forces a requested TTL into the configured bounds, substituting the
// default when none was requested.
func (l LocksConfig) Clamp(requested time.Duration) time.Duration {
	if requested <= 0 {
		return l.DefaultTTL
	}
	if requested < l.MinTTL {
		return l.MinTTL
	}
	if requested > l.MaxTTL {
		return l.MaxTTL
	}
	return requested
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BOOKTIFI_CRON_INTERVAL" default:"1h"`
	LockKey  string        `envconfig:"BOOKTIFI_CRON_LOCK_KEY" default:"booktifi:cron:lock"`
	LockTTL  time.Duration `envconfig:"BOOKTIFI_CRON_LOCK_TTL" default:"65m"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BOOKTIFI_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BOOKTIFI_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BOOKTIFI_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"BOOKTIFI_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BOOKTIFI_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
