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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	RateLimit    RateLimitConfig
	Idempotency  IdempotencyConfig
	Sales        SalesConfig
	Metrics      MetricsConfig
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
	if err := cfg.Sales.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STORETRACK_APP_ENV" required:"true"`
	Port         string   `envconfig:"STORETRACK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"STORETRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STORETRACK_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"STORETRACK_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"STORETRACK_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"STORETRACK_DB_DSN"`

	Host     string `envconfig:"STORETRACK_DB_HOST"`
	Port     int    `envconfig:"STORETRACK_DB_PORT" default:"5432"`
	User     string `envconfig:"STORETRACK_DB_USER"`
	Password string `envconfig:"STORETRACK_DB_PASSWORD"`
	Name     string `envconfig:"STORETRACK_DB_NAME"`
	SSLMode  string `envconfig:"STORETRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STORETRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STORETRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STORETRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STORETRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STORETRACK_REDIS_URL"`
	Address      string        `envconfig:"STORETRACK_REDIS_ADDR"`
	Password     string        `envconfig:"STORETRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"STORETRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STORETRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STORETRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STORETRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STORETRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STORETRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STORETRACK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STORETRACK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STORETRACK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STORETRACK_AUTO_MIGRATE" default:"false"`
}

// RateLimitConfig throttles sale writes per principal (redis) and all API traffic per IP.
type RateLimitConfig struct {
	SalesWindow time.Duration `envconfig:"STORETRACK_RATE_LIMIT_SALES_WINDOW" default:"1m"`
	SalesLimit  int           `envconfig:"STORETRACK_RATE_LIMIT_SALES_LIMIT" default:"120"`
	IPWindow    time.Duration `envconfig:"STORETRACK_RATE_LIMIT_IP_WINDOW" default:"1m"`
	IPLimit     int           `envconfig:"STORETRACK_RATE_LIMIT_IP_LIMIT" default:"600"`
}

type IdempotencyConfig struct {
	SalesTTL time.Duration `envconfig:"STORETRACK_IDEMPOTENCY_SALES_TTL" default:"168h"`
}

type SalesConfig struct {
	MaxCheckoutLines int `envconfig:"STORETRACK_SALES_MAX_CHECKOUT_LINES" default:"200"`
	DefaultPageSize  int `envconfig:"STORETRACK_SALES_DEFAULT_PAGE_SIZE" default:"25"`
	MaxPageSize      int `envconfig:"STORETRACK_SALES_MAX_PAGE_SIZE" default:"200"`
}

func (s SalesConfig) validate() error {
	if s.MaxCheckoutLines <= 0 {
		return fmt.Errorf("%s must be positive", EnvSalesMaxCheckoutLines)
	}
	if s.DefaultPageSize <= 0 || s.MaxPageSize <= 0 || s.DefaultPageSize > s.MaxPageSize {
		return fmt.Errorf("%s must be between 1 and %s", EnvSalesDefaultPageSize, EnvSalesMaxPageSize)
	}
	return nil
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"STORETRACK_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"STORETRACK_METRICS_PATH" default:"/metrics"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STORETRACK_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	SalesTopic string `envconfig:"STORETRACK_PUBSUB_SALES_TOPIC" default:"storetrack-sales-events"`
	// AutoCreateTopics creates missing topics instead of failing; meant for
	// the emulator and dev projects.
	AutoCreateTopics      bool `envconfig:"STORETRACK_PUBSUB_AUTO_CREATE_TOPICS" default:"false"`
	PublishDelayMS        int  `envconfig:"STORETRACK_PUBSUB_PUBLISH_DELAY_MS" default:"10"`
	PublishCountThreshold int  `envconfig:"STORETRACK_PUBSUB_PUBLISH_COUNT_THRESHOLD" default:"100"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STORETRACK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STORETRACK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STORETRACK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	// Publish timeout and the ceiling of the error backoff, in milliseconds.
	PublishTimeoutMS int `envconfig:"STORETRACK_OUTBOX_PUBLISH_TIMEOUT_MS" default:"15000"`
	MaxBackoffMS     int `envconfig:"STORETRACK_OUTBOX_MAX_BACKOFF_MS" default:"10000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
