package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the backend reads.
	EnvPrefix = "VELMORA"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "VELMORA_APP_ENV"
	EnvDBDSN  = "VELMORA_DB_DSN"
	EnvDBHost = "VELMORA_DB_HOST"
	EnvDBUser = "VELMORA_DB_USER"
	EnvDBName = "VELMORA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Snapshot     SnapshotConfig
	RateLimit    RateLimitConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VELMORA_APP_ENV" required:"true"`
	Port         string `envconfig:"VELMORA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VELMORA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VELMORA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VELMORA_DB_DSN"`
	Driver string `envconfig:"VELMORA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VELMORA_DB_HOST"`
	LegacyPort     int    `envconfig:"VELMORA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VELMORA_DB_USER"`
	LegacyPassword string `envconfig:"VELMORA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VELMORA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VELMORA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VELMORA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VELMORA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VELMORA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VELMORA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VELMORA_REDIS_URL"`
	Address      string        `envconfig:"VELMORA_REDIS_ADDR"`
	Password     string        `envconfig:"VELMORA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VELMORA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VELMORA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VELMORA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VELMORA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VELMORA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VELMORA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SnapshotConfig tunes how often evaluation snapshots are refreshed.
type SnapshotConfig struct {
	MaxAge        time.Duration `envconfig:"VELMORA_SNAPSHOT_MAX_AGE" default:"30s"`
	VersionKeyTTL time.Duration `envconfig:"VELMORA_SNAPSHOT_VERSION_TTL" default:"0"`
}

// RateLimitConfig throttles catalog mutation endpoints per client IP.
type RateLimitConfig struct {
	MutationWindow  time.Duration `envconfig:"VELMORA_RATE_LIMIT_MUTATION_WINDOW" default:"1m"`
	MutationIPLimit int           `envconfig:"VELMORA_RATE_LIMIT_MUTATION_IP_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VELMORA_AUTO_MIGRATE" default:"false"`
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
