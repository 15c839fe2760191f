package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv    = "SOKOYETU_APP_ENV"
	EnvPort      = "SOKOYETU_APP_PORT"
	EnvDBDSN     = "SOKOYETU_DB_DSN"
	EnvDBHost    = "SOKOYETU_DB_HOST"
	EnvDBUser    = "SOKOYETU_DB_USER"
	EnvDBName    = "SOKOYETU_DB_NAME"
	EnvRedisURL  = "SOKOYETU_REDIS_URL"
	EnvJWTSecret = "SOKOYETU_JWT_SECRET"
	EnvJWTIssuer = "SOKOYETU_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	MTN     CarrierConfig `envconfig:"SOKOYETU_MTN"`
	Airtel  CarrierConfig `envconfig:"SOKOYETU_AIRTEL"`
	COD     CODConfig
	Poller  PollerConfig
	Cron    CronConfig
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
	Env          string `envconfig:"SOKOYETU_APP_ENV" required:"true"`
	Port         string `envconfig:"SOKOYETU_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOKOYETU_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOKOYETU_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SOKOYETU_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SOKOYETU_DB_DSN"`
	Driver string `envconfig:"SOKOYETU_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SOKOYETU_DB_HOST"`
	LegacyPort     int    `envconfig:"SOKOYETU_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SOKOYETU_DB_USER"`
	LegacyPassword string `envconfig:"SOKOYETU_DB_PASSWORD"`
	LegacyName     string `envconfig:"SOKOYETU_DB_NAME"`
	LegacySSLMode  string `envconfig:"SOKOYETU_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOKOYETU_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOKOYETU_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOKOYETU_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOKOYETU_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"SOKOYETU_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOKOYETU_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOKOYETU_REDIS_ADDR"`
	Password     string        `envconfig:"SOKOYETU_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOKOYETU_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOKOYETU_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOKOYETU_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOKOYETU_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOKOYETU_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOKOYETU_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SOKOYETU_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SOKOYETU_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SOKOYETU_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CarrierConfig holds one mobile-money collection API connection. The MTN and
// Airtel blocks share the shape; poll cadence left at zero falls back to the
// carrier defaults in internal/carrier.
type CarrierConfig struct {
	BaseURL         string        `envconfig:"BASE_URL"`
	APIKey          string        `envconfig:"API_KEY"`
	APISecret       string        `envconfig:"API_SECRET"`
	CallbackURL     string        `envconfig:"CALLBACK_URL"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	PollInterval    time.Duration `envconfig:"POLL_INTERVAL"`
	PollMaxAttempts int           `envconfig:"POLL_MAX_ATTEMPTS"`
}

type CODConfig struct {
	AgentPoolSize int `envconfig:"SOKOYETU_COD_AGENT_POOL_SIZE" default:"10"`
}

type PollerConfig struct {
	WallTimeout  time.Duration `envconfig:"SOKOYETU_POLLER_WALL_TIMEOUT" default:"120s"`
	ScanInterval time.Duration `envconfig:"SOKOYETU_POLLER_SCAN_INTERVAL" default:"10s"`
	ScanBatch    int           `envconfig:"SOKOYETU_POLLER_SCAN_BATCH" default:"50"`
	Concurrency  int           `envconfig:"SOKOYETU_POLLER_CONCURRENCY" default:"8"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"SOKOYETU_CRON_INTERVAL" default:"1h"`
	PendingPaymentTTL   time.Duration `envconfig:"SOKOYETU_CRON_PENDING_PAYMENT_TTL" default:"24h"`
	NotificationMaxAge  time.Duration `envconfig:"SOKOYETU_CRON_NOTIFICATION_MAX_AGE" default:"2160h"`
	NotificationPerPass int           `envconfig:"SOKOYETU_CRON_NOTIFICATION_PER_PASS" default:"1000"`
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
