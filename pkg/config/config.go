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
	FeatureFlags FeatureFlagsConfig
	Orders       OrdersConfig
	Feed         FeedConfig
	Audit        AuditConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	RabbitMQ     RabbitMQConfig
	Telegram     TelegramConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CAFEFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"CAFEFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CAFEFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CAFEFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"CAFEFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CAFEFLOW_DB_DSN"`
	Driver string `envconfig:"CAFEFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CAFEFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"CAFEFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CAFEFLOW_DB_USER"`
	LegacyPassword string `envconfig:"CAFEFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"CAFEFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"CAFEFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CAFEFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CAFEFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CAFEFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CAFEFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"CAFEFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CAFEFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"CAFEFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"CAFEFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CAFEFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CAFEFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CAFEFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CAFEFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CAFEFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes the tokens minted by the identity provider.
type JWTConfig struct {
	Secret            string `envconfig:"CAFEFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CAFEFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CAFEFLOW_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CAFEFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CAFEFLOW_AUTO_MIGRATE" default:"false"`
}

type OrdersConfig struct {
	TransitionPolicy  string `envconfig:"CAFEFLOW_ORDERS_TRANSITION_POLICY" default:"strict"`
	MaxUpdateAttempts int    `envconfig:"CAFEFLOW_ORDERS_MAX_UPDATE_ATTEMPTS" default:"5"`
	StatisticsSource  string `envconfig:"CAFEFLOW_ORDERS_STATISTICS_SOURCE" default:"scan"`
	PrepTimesFile     string `envconfig:"CAFEFLOW_ORDERS_PREP_TIMES_FILE"`
}

func (o OrdersConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.TransitionPolicy)) {
	case TransitionPolicyStrict, TransitionPolicyPermissive:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvOrdersTransitionPolicy, TransitionPolicyStrict, TransitionPolicyPermissive)
	}
	switch strings.ToLower(strings.TrimSpace(o.StatisticsSource)) {
	case StatisticsSourceScan, StatisticsSourceCounters:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvOrdersStatisticsSource, StatisticsSourceScan, StatisticsSourceCounters)
	}
	if o.MaxUpdateAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrdersMaxUpdateAttempts)
	}
	return nil
}

type FeedConfig struct {
	MinPushInterval time.Duration `envconfig:"CAFEFLOW_FEED_MIN_PUSH_INTERVAL" default:"250ms"`
	Notifier        string        `envconfig:"CAFEFLOW_FEED_NOTIFIER" default:"local"`
	RedisChannel    string        `envconfig:"CAFEFLOW_FEED_REDIS_CHANNEL" default:"cafeflow:docstore:changes"`
	Heartbeat       time.Duration `envconfig:"CAFEFLOW_FEED_HEARTBEAT" default:"25s"`
}

// UsesRedis reports whether live-feed wakeups fan out across instances.
func (f FeedConfig) UsesRedis() bool {
	return strings.EqualFold(strings.TrimSpace(f.Notifier), "redis")
}

type AuditConfig struct {
	Sinks         []string      `envconfig:"CAFEFLOW_AUDIT_SINKS" default:"log,db"`
	QueueSize     int           `envconfig:"CAFEFLOW_AUDIT_QUEUE_SIZE" default:"1024"`
	BatchSize     int           `envconfig:"CAFEFLOW_AUDIT_BATCH_SIZE" default:"50"`
	FlushInterval time.Duration `envconfig:"CAFEFLOW_AUDIT_FLUSH_INTERVAL" default:"2s"`
	Workers       int           `envconfig:"CAFEFLOW_AUDIT_WORKERS" default:"2"`
}

// HasSink reports whether the named sink is enabled.
func (a AuditConfig) HasSink(name string) bool {
	for _, sink := range a.Sinks {
		if strings.EqualFold(strings.TrimSpace(sink), name) {
			return true
		}
	}
	return false
}

type GCPConfig struct {
	ProjectID string `envconfig:"CAFEFLOW_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	AuditTopic string `envconfig:"CAFEFLOW_PUBSUB_AUDIT_TOPIC" default:"cafeflow-order-audit"`
}

type KafkaConfig struct {
	Brokers  []string      `envconfig:"CAFEFLOW_KAFKA_BROKERS"`
	Topic    string        `envconfig:"CAFEFLOW_KAFKA_AUDIT_TOPIC" default:"cafeflow.order-audit"`
	ClientID string        `envconfig:"CAFEFLOW_KAFKA_CLIENT_ID" default:"cafeflow-api"`
	Timeout  time.Duration `envconfig:"CAFEFLOW_KAFKA_TIMEOUT" default:"5s"`
}

type RabbitMQConfig struct {
	URL      string `envconfig:"CAFEFLOW_RABBITMQ_URL"`
	Exchange string `envconfig:"CAFEFLOW_RABBITMQ_EXCHANGE" default:"order_events"`
}

type TelegramConfig struct {
	BotToken string `envconfig:"CAFEFLOW_TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `envconfig:"CAFEFLOW_TELEGRAM_CHAT_ID"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `envconfig:"CAFEFLOW_RATE_LIMIT_RPS" default:"20"`
	Burst             int           `envconfig:"CAFEFLOW_RATE_LIMIT_BURST" default:"40"`
	GuestOrderWindow  time.Duration `envconfig:"CAFEFLOW_RATE_LIMIT_GUEST_ORDER_WINDOW" default:"10m"`
	GuestOrderIPLimit int           `envconfig:"CAFEFLOW_RATE_LIMIT_GUEST_ORDER_IP_LIMIT" default:"5"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CAFEFLOW_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	if db.IsSQLite() {
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
