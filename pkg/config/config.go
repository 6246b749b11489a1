package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "residencia"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "RESIDENCIA_DB_DSN"
	EnvDBHost = "RESIDENCIA_DB_HOST"
	EnvDBUser = "RESIDENCIA_DB_USER"
	EnvDBName = "RESIDENCIA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Stripe       StripeConfig
	Reconcile    ReconcileConfig
	Cron         CronConfig
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
	Env          string `envconfig:"RESIDENCIA_APP_ENV" required:"true"`
	Port         string `envconfig:"RESIDENCIA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RESIDENCIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RESIDENCIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"RESIDENCIA_DB_DSN"`

	LegacyHost     string `envconfig:"RESIDENCIA_DB_HOST"`
	LegacyPort     int    `envconfig:"RESIDENCIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RESIDENCIA_DB_USER"`
	LegacyPassword string `envconfig:"RESIDENCIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"RESIDENCIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"RESIDENCIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RESIDENCIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RESIDENCIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RESIDENCIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RESIDENCIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RESIDENCIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RESIDENCIA_REDIS_ADDR"`
	Password     string        `envconfig:"RESIDENCIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"RESIDENCIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RESIDENCIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RESIDENCIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RESIDENCIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RESIDENCIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RESIDENCIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RESIDENCIA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RESIDENCIA_JWT_ISSUER" default:"residencia"`
	ExpirationMinutes int    `envconfig:"RESIDENCIA_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RESIDENCIA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RESIDENCIA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RESIDENCIA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RESIDENCIA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RESIDENCIA_ARGON_KEY_LEN" default:"32"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"RESIDENCIA_STRIPE_API_KEY"`
	Secret   string `envconfig:"RESIDENCIA_STRIPE_WEBHOOK_SECRET"`
	Env      string `envconfig:"RESIDENCIA_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"RESIDENCIA_STRIPE_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type ReconcileConfig struct {
	// LedgerTTL is the retention window for processed webhook event ids.
	// Pruning is safe: the bill-row conditional update is the real guard.
	LedgerTTL time.Duration `envconfig:"RESIDENCIA_RECONCILE_LEDGER_TTL" default:"720h"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"RESIDENCIA_CRON_INTERVAL" default:"24h"`
	OrphanLookback time.Duration `envconfig:"RESIDENCIA_CRON_ORPHAN_LOOKBACK" default:"72h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RESIDENCIA_AUTO_MIGRATE" default:"false"`
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
