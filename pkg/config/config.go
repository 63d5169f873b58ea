package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Store     StoreConfig
	DB        DBConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Cashfree  CashfreeConfig
	RateLimit RateLimitConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Metrics   MetricsConfig
	Reconcile ReconcileConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.App.ensurePublicHost(); err != nil {
		return nil, err
	}
	if err := cfg.Cashfree.validate(); err != nil {
		return nil, err
	}
	switch cfg.Store.Kind() {
	case StoreDriverPostgres:
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	case StoreDriverMongo:
		if strings.TrimSpace(cfg.Mongo.URI) == "" {
			return nil, fmt.Errorf("%s is required when %s=%s", EnvMongoURI, EnvStoreDriver, StoreDriverMongo)
		}
	default:
		return nil, fmt.Errorf("%s must be %q or %q", EnvStoreDriver, StoreDriverPostgres, StoreDriverMongo)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env              string   `envconfig:"REGPAY_APP_ENV" required:"true"`
	Port             string   `envconfig:"REGPAY_APP_PORT" required:"true"`
	LogLevel         string   `envconfig:"REGPAY_LOG_LEVEL" default:"info"`
	LogWarnStack     bool     `envconfig:"REGPAY_LOG_WARN_STACK" default:"false"`
	PublicHost       string   `envconfig:"REGPAY_PUBLIC_HOST"`
	DefaultReturnURL string   `envconfig:"REGPAY_DEFAULT_RETURN_URL"`
	AutoMigrate      bool     `envconfig:"REGPAY_AUTO_MIGRATE" default:"false"`
	CORSOrigins      []string `envconfig:"REGPAY_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

// NotifyURL is the webhook callback handed to the gateway on order creation.
func (a AppConfig) NotifyURL() string {
	return "https://" + a.PublicHost + WebhookPath
}

// ReturnURL falls back to the checkout result page on the public host.
func (a AppConfig) ReturnURL(requested string) string {
	if r := strings.TrimSpace(requested); r != "" {
		return r
	}
	if a.DefaultReturnURL != "" {
		return a.DefaultReturnURL
	}
	return "https://" + a.PublicHost + "/payment-status?order_id={order_id}"
}

// ensurePublicHost normalizes the host and fails when it is missing; without it
// the gateway would have nowhere to deliver webhooks.
func (a *AppConfig) ensurePublicHost() error {
	host := strings.TrimSpace(a.PublicHost)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimRight(host, "/")
	if host == "" {
		return fmt.Errorf("%s is required to build the webhook notify url", EnvPublicHost)
	}
	a.PublicHost = host
	return nil
}

type StoreConfig struct {
	Driver string `envconfig:"REGPAY_STORE_DRIVER" default:"postgres"`
}

// Kind returns the normalized store driver.
func (s StoreConfig) Kind() string {
	return strings.ToLower(strings.TrimSpace(s.Driver))
}

type DBConfig struct {
	DSN string `envconfig:"REGPAY_DB_DSN"`

	LegacyHost     string `envconfig:"REGPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"REGPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"REGPAY_DB_USER"`
	LegacyPassword string `envconfig:"REGPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"REGPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"REGPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"REGPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"REGPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"REGPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REGPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type MongoConfig struct {
	URI              string        `envconfig:"REGPAY_MONGO_URI"`
	Database         string        `envconfig:"REGPAY_MONGO_DATABASE" default:"regpay"`
	ConnectTimeout   time.Duration `envconfig:"REGPAY_MONGO_CONNECT_TIMEOUT" default:"10s"`
	OperationTimeout time.Duration `envconfig:"REGPAY_MONGO_OPERATION_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REGPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"REGPAY_REDIS_ADDR"`
	Password     string        `envconfig:"REGPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"REGPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REGPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REGPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REGPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REGPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REGPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CashfreeConfig struct {
	ClientID         string        `envconfig:"REGPAY_CASHFREE_CLIENT_ID" required:"true"`
	SecretKey        string        `envconfig:"REGPAY_CASHFREE_SECRET_KEY" required:"true"`
	Mode             string        `envconfig:"REGPAY_CASHFREE_MODE" default:"sandbox"`
	APIVersion       string        `envconfig:"REGPAY_CASHFREE_API_VERSION" default:"2023-08-01"`
	Timeout          time.Duration `envconfig:"REGPAY_CASHFREE_TIMEOUT" default:"15s"`
	WebhookReplayTTL time.Duration `envconfig:"REGPAY_CASHFREE_WEBHOOK_REPLAY_TTL" default:"72h"`
	BaseURLOverride  string        `envconfig:"REGPAY_CASHFREE_BASE_URL"`
}

// Environment returns the normalized gateway mode (sandbox/production).
func (c CashfreeConfig) Environment() string {
	mode := strings.TrimSpace(strings.ToLower(c.Mode))
	if mode == "" {
		return CashfreeModeSandbox
	}
	return mode
}

func (c CashfreeConfig) validate() error {
	switch c.Environment() {
	case CashfreeModeSandbox, CashfreeModeProduction:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvCashfreeMode, CashfreeModeSandbox, CashfreeModeProduction)
	}
}

type RateLimitConfig struct {
	OrderWindow     time.Duration `envconfig:"REGPAY_RATE_LIMIT_ORDER_WINDOW" default:"1m"`
	OrderIPLimit    int           `envconfig:"REGPAY_RATE_LIMIT_ORDER_IP_LIMIT" default:"20"`
	OrderEmailLimit int           `envconfig:"REGPAY_RATE_LIMIT_ORDER_EMAIL_LIMIT" default:"5"`
	IdempotencyTTL  time.Duration `envconfig:"REGPAY_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"REGPAY_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	PaymentsTopic string `envconfig:"REGPAY_PUBSUB_PAYMENTS_TOPIC"`
}

// Enabled reports whether payment events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.PaymentsTopic) != ""
}

type MetricsConfig struct {
	Enabled bool `envconfig:"REGPAY_METRICS_ENABLED" default:"true"`
	// WorkerAddr is where the cron worker serves /metrics; empty disables the listener.
	WorkerAddr string `envconfig:"REGPAY_METRICS_WORKER_ADDR" default:":9102"`
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

// ReconcileConfig drives the cron sweep that polls orders the webhook never settled.
type ReconcileConfig struct {
	Interval     time.Duration `envconfig:"REGPAY_RECONCILE_INTERVAL" default:"5m"`
	MinAge       time.Duration `envconfig:"REGPAY_RECONCILE_MIN_AGE" default:"15m"`
	MaxAge       time.Duration `envconfig:"REGPAY_RECONCILE_MAX_AGE" default:"72h"`
	RecheckAfter time.Duration `envconfig:"REGPAY_RECONCILE_RECHECK_AFTER" default:"15m"`
	BatchSize    int           `envconfig:"REGPAY_RECONCILE_BATCH_SIZE" default:"50"`
}
