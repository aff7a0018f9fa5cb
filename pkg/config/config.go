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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Shipping     ShippingConfig
	Returns      ReturnsConfig
	SMTP         SMTPConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Shipping.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RETURNS_APP_ENV" required:"true"`
	Port         string `envconfig:"RETURNS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RETURNS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RETURNS_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"RETURNS_LOG_FORMAT" default:"json"`
	CORSOrigins  string `envconfig:"RETURNS_CORS_ORIGINS" default:"*"`
	// MetricsAddr exposes /metrics on background processes when set (e.g. ":9090").
	MetricsAddr string `envconfig:"RETURNS_METRICS_ADDR"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

type ServiceConfig struct {
	Kind string `envconfig:"RETURNS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RETURNS_DB_DSN"`
	Driver string `envconfig:"RETURNS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RETURNS_DB_HOST"`
	LegacyPort     int    `envconfig:"RETURNS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RETURNS_DB_USER"`
	LegacyPassword string `envconfig:"RETURNS_DB_PASSWORD"`
	LegacyName     string `envconfig:"RETURNS_DB_NAME"`
	LegacySSLMode  string `envconfig:"RETURNS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RETURNS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RETURNS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RETURNS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RETURNS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the duration above which statements are logged at warn.
	SlowQuery time.Duration `envconfig:"RETURNS_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RETURNS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RETURNS_REDIS_ADDR"`
	Password     string        `envconfig:"RETURNS_REDIS_PASSWORD"`
	DB           int           `envconfig:"RETURNS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RETURNS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RETURNS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RETURNS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RETURNS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RETURNS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string        `envconfig:"RETURNS_JWT_SECRET" required:"true"`
	Issuer            string        `envconfig:"RETURNS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int           `envconfig:"RETURNS_JWT_EXPIRATION_MINUTES" required:"true"`
	Audience          string        `envconfig:"RETURNS_JWT_AUDIENCE"`
	Leeway            time.Duration `envconfig:"RETURNS_JWT_LEEWAY" default:"30s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RETURNS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RETURNS_AUTO_MIGRATE" default:"false"`
	// EmailNotifications toggles the SMTP channel of the dispatcher.
	EmailNotifications bool `envconfig:"RETURNS_FEATURE_EMAIL_NOTIFICATIONS" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL   time.Duration `envconfig:"RETURNS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	OutboxIdempotencyLease time.Duration `envconfig:"RETURNS_EVENTING_IDEMPOTENCY_LEASE" default:"5m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RETURNS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"RETURNS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"RETURNS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ReturnsTopic             string `envconfig:"RETURNS_PUBSUB_RETURNS_TOPIC" default:"returns-events"`
	NotificationSubscription string `envconfig:"RETURNS_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"returns-notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RETURNS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"RETURNS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RETURNS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"RETURNS_OUTBOX_RETENTION_DAYS" default:"30"`

	// DLQRetentionDays keeps dead letters longer than published rows so
	// operators have time to replay them.
	DLQRetentionDays int `envconfig:"RETURNS_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

// ShippingConfig carries the zone fee table used for return shipping quotes.
type ShippingConfig struct {
	ShopProvince       string          `envconfig:"RETURNS_SHIPPING_SHOP_PROVINCE" default:"TP. Hồ Chí Minh"`
	ShopDistrict       string          `envconfig:"RETURNS_SHIPPING_SHOP_DISTRICT" default:"Quận 1"`
	SameDistrictFee    decimal.Decimal `envconfig:"RETURNS_SHIPPING_SAME_DISTRICT_FEE" default:"18000"`
	SameProvinceFee    decimal.Decimal `envconfig:"RETURNS_SHIPPING_SAME_PROVINCE_FEE" default:"22000"`
	SameRegionFee      decimal.Decimal `envconfig:"RETURNS_SHIPPING_SAME_REGION_FEE" default:"28000"`
	CrossRegionFee     decimal.Decimal `envconfig:"RETURNS_SHIPPING_CROSS_REGION_FEE" default:"38000"`
	FreeShippingAmount decimal.Decimal `envconfig:"RETURNS_SHIPPING_FREE_THRESHOLD" default:"5000000"`
}

func (s ShippingConfig) validate() error {
	for name, fee := range map[string]decimal.Decimal{
		"same district":  s.SameDistrictFee,
		"same province":  s.SameProvinceFee,
		"same region":    s.SameRegionFee,
		"cross region":   s.CrossRegionFee,
		"free threshold": s.FreeShippingAmount,
	} {
		if fee.IsNegative() {
			return fmt.Errorf("shipping %s amount must not be negative", name)
		}
	}
	return nil
}

type ReturnsConfig struct {
	WindowDays        int           `envconfig:"RETURNS_WINDOW_DAYS" default:"7"`
	StalePendingAfter time.Duration `envconfig:"RETURNS_STALE_PENDING_AFTER" default:"48h"`
	StaleNudgeBatch   int           `envconfig:"RETURNS_STALE_NUDGE_BATCH" default:"100"`

	NotificationRetentionDays       int `envconfig:"RETURNS_NOTIFICATION_RETENTION_DAYS" default:"30"`
	NotificationUnreadRetentionDays int `envconfig:"RETURNS_NOTIFICATION_UNREAD_RETENTION_DAYS" default:"180"`
}

// Window returns the return eligibility window measured from delivery.
func (r ReturnsConfig) Window() time.Duration {
	if r.WindowDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(r.WindowDays) * 24 * time.Hour
}

type SMTPConfig struct {
	Host     string `envconfig:"RETURNS_SMTP_HOST"`
	Port     int    `envconfig:"RETURNS_SMTP_PORT" default:"587"`
	Username string `envconfig:"RETURNS_SMTP_USERNAME"`
	Password string `envconfig:"RETURNS_SMTP_PASSWORD"`
	From     string `envconfig:"RETURNS_SMTP_FROM" default:"returns@localhost"`
}

// Enabled reports whether enough SMTP settings exist to send mail.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != "" && strings.TrimSpace(s.From) != ""
}

// RateLimitConfig throttles return submissions per client IP and per user.
type RateLimitConfig struct {
	SubmitWindow    time.Duration `envconfig:"RETURNS_RATE_LIMIT_SUBMIT_WINDOW" default:"1h"`
	SubmitIPLimit   int           `envconfig:"RETURNS_RATE_LIMIT_SUBMIT_IP" default:"60"`
	SubmitUserLimit int           `envconfig:"RETURNS_RATE_LIMIT_SUBMIT_USER" default:"10"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"RETURNS_CRON_INTERVAL" default:"15m"`
	LockTTL    time.Duration `envconfig:"RETURNS_CRON_LOCK_TTL" default:"10m"`
	JobTimeout time.Duration `envconfig:"RETURNS_CRON_JOB_TIMEOUT" default:"5m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite || strings.EqualFold(db.Driver, "sqlite") {
		db.Driver = "sqlite"
		db.DSN = "file:returns.db?cache=shared"
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
