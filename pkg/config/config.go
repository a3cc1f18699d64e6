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
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Payments     PaymentsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"SVPHARMA_APP_ENV" required:"true"`
	Port         string `envconfig:"SVPHARMA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SVPHARMA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SVPHARMA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SVPHARMA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SVPHARMA_DB_DSN"`
	Driver string `envconfig:"SVPHARMA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SVPHARMA_DB_HOST"`
	LegacyPort     int    `envconfig:"SVPHARMA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SVPHARMA_DB_USER"`
	LegacyPassword string `envconfig:"SVPHARMA_DB_PASSWORD"`
	LegacyName     string `envconfig:"SVPHARMA_DB_NAME"`
	LegacySSLMode  string `envconfig:"SVPHARMA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SVPHARMA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SVPHARMA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SVPHARMA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SVPHARMA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SVPHARMA_REDIS_URL" default:"redis://localhost:6379/0"`
	Address      string        `envconfig:"SVPHARMA_REDIS_ADDR"`
	Password     string        `envconfig:"SVPHARMA_REDIS_PASSWORD"`
	DB           int           `envconfig:"SVPHARMA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SVPHARMA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SVPHARMA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SVPHARMA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SVPHARMA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SVPHARMA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SVPHARMA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SVPHARMA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SVPHARMA_JWT_EXPIRATION_MINUTES" required:"true"`
}

// AccessTokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SVPHARMA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SVPHARMA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SVPHARMA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SVPHARMA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SVPHARMA_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SVPHARMA_AUTO_MIGRATE" default:"false"`
}

type PaymentsConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SVPHARMA_PAYMENTS_IDEMPOTENCY_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SVPHARMA_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"SVPHARMA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"SVPHARMA_PUBSUB_NOTIFICATION_TOPIC" default:"svpharma-notification-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SVPHARMA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SVPHARMA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SVPHARMA_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
