package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "MANDISETU"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MANDISETU_DB_DSN"
	EnvDBHost = "MANDISETU_DB_HOST"
	EnvDBUser = "MANDISETU_DB_USER"
	EnvDBName = "MANDISETU_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Join         JoinConfig
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
	Env          string `envconfig:"MANDISETU_APP_ENV" required:"true"`
	Port         string `envconfig:"MANDISETU_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MANDISETU_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MANDISETU_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MANDISETU_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MANDISETU_DB_DSN"`
	Driver string `envconfig:"MANDISETU_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MANDISETU_DB_HOST"`
	LegacyPort     int    `envconfig:"MANDISETU_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MANDISETU_DB_USER"`
	LegacyPassword string `envconfig:"MANDISETU_DB_PASSWORD"`
	LegacyName     string `envconfig:"MANDISETU_DB_NAME"`
	LegacySSLMode  string `envconfig:"MANDISETU_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MANDISETU_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MANDISETU_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MANDISETU_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MANDISETU_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MANDISETU_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MANDISETU_REDIS_ADDR"`
	Password     string        `envconfig:"MANDISETU_REDIS_PASSWORD"`
	DB           int           `envconfig:"MANDISETU_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MANDISETU_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MANDISETU_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MANDISETU_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MANDISETU_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MANDISETU_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MANDISETU_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MANDISETU_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MANDISETU_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MANDISETU_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MANDISETU_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"MANDISETU_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"MANDISETU_PUBSUB_DOMAIN_TOPIC" default:"ms-domain-events"`
	DomainSubscription string `envconfig:"MANDISETU_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MANDISETU_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MANDISETU_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MANDISETU_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// JoinConfig tunes the join transaction's conflict-retry behavior.
type JoinConfig struct {
	TxMaxRetries   int           `envconfig:"MANDISETU_JOIN_TX_MAX_RETRIES" default:"5"`
	TxRetryBackoff time.Duration `envconfig:"MANDISETU_JOIN_TX_RETRY_BACKOFF" default:"20ms"`
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
