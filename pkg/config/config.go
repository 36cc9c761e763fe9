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
	Flow         FlowConfig
	URLs         URLConfig
	ClientAuth   ClientAuthConfig
	Mailer       MailerConfig
	Sendgrid     SendgridConfig
	SMTP         SMTPConfig
	Product      ProductConfig
	Commerce     CommerceConfig
	Fulfillment  FulfillmentConfig
	Retry        RetryConfig
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
	if cfg.URLs.DownloadBaseURL == "" {
		cfg.URLs.DownloadBaseURL = cfg.URLs.PublicBaseURL
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FLUJOS_APP_ENV" required:"true"`
	Port         string `envconfig:"FLUJOS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FLUJOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FLUJOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FLUJOS_DB_DSN"`
	Driver string `envconfig:"FLUJOS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FLUJOS_DB_HOST"`
	LegacyPort     int    `envconfig:"FLUJOS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FLUJOS_DB_USER"`
	LegacyPassword string `envconfig:"FLUJOS_DB_PASSWORD"`
	LegacyName     string `envconfig:"FLUJOS_DB_NAME"`
	LegacySSLMode  string `envconfig:"FLUJOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FLUJOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FLUJOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FLUJOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FLUJOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FLUJOS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FLUJOS_REDIS_ADDR"`
	Password     string        `envconfig:"FLUJOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"FLUJOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FLUJOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FLUJOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FLUJOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FLUJOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FLUJOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// FlowConfig carries the Flow.cl REST credentials. The secret key signs
// every request and must never appear in logs or responses.
type FlowConfig struct {
	APIKey    string        `envconfig:"FLUJOS_FLOW_API_KEY" required:"true"`
	SecretKey string        `envconfig:"FLUJOS_FLOW_SECRET_KEY" required:"true"`
	BaseURL   string        `envconfig:"FLUJOS_FLOW_API_URL" default:"https://www.flow.cl/api"`
	Timeout   time.Duration `envconfig:"FLUJOS_FLOW_TIMEOUT" default:"30s"`
}

type URLConfig struct {
	// PublicBaseURL is this service's externally reachable base, used to
	// build the confirmation and return URLs handed to the gateway.
	PublicBaseURL string `envconfig:"FLUJOS_PUBLIC_BASE_URL" required:"true"`
	// DownloadBaseURL is the base for download links in delivery emails.
	// Falls back to PublicBaseURL.
	DownloadBaseURL string `envconfig:"FLUJOS_DOWNLOAD_BASE_URL"`
}

type ClientAuthConfig struct {
	// Secret guards POST /flow/confirm. Empty means the endpoint is open.
	Secret string `envconfig:"FLUJOS_CLIENT_SECRET"`
}

type MailerConfig struct {
	Driver string `envconfig:"FLUJOS_MAILER_DRIVER" default:"log"`
	From   string `envconfig:"FLUJOS_MAIL_FROM"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"FLUJOS_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"FLUJOS_SENDGRID_FROM_EMAIL"`
}

type SMTPConfig struct {
	Host     string `envconfig:"FLUJOS_SMTP_HOST"`
	Port     int    `envconfig:"FLUJOS_SMTP_PORT" default:"587"`
	User     string `envconfig:"FLUJOS_SMTP_USER"`
	Password string `envconfig:"FLUJOS_SMTP_PASSWORD"`
}

type ProductConfig struct {
	Name     string `envconfig:"FLUJOS_PRODUCT_NAME" default:"Pack Flujos Digitales"`
	FilePath string `envconfig:"FLUJOS_PRODUCT_FILE" default:"assets/pack-flujos.zip"`
	// PriceCLP is the list price in Chilean pesos. CLP has no minor
	// unit, so this is the exact amount charged.
	PriceCLP int64 `envconfig:"FLUJOS_PRODUCT_PRICE_CLP" default:"9990"`
}

type CommerceConfig struct {
	Currency       string `envconfig:"FLUJOS_CURRENCY" default:"CLP"`
	DefaultSubject string `envconfig:"FLUJOS_DEFAULT_SUBJECT" default:"Compra Pack Flujos Digitales"`
}

type FulfillmentConfig struct {
	LockTTL           time.Duration `envconfig:"FLUJOS_FULFILL_LOCK_TTL" default:"2m"`
	PendingTokenTTL   time.Duration `envconfig:"FLUJOS_PENDING_TOKEN_TTL" default:"15m"`
	WebhookQueueSize  int           `envconfig:"FLUJOS_WEBHOOK_QUEUE_SIZE" default:"64"`
	WebhookWorkers    int           `envconfig:"FLUJOS_WEBHOOK_WORKERS" default:"4"`
	WebhookJobTimeout time.Duration `envconfig:"FLUJOS_WEBHOOK_JOB_TIMEOUT" default:"45s"`
}

// RetryConfig parameterizes the retry policy per external call.
type RetryConfig struct {
	MailMaxAttempts   int           `envconfig:"FLUJOS_MAIL_RETRY_MAX_ATTEMPTS" default:"3"`
	MailBaseDelay     time.Duration `envconfig:"FLUJOS_MAIL_RETRY_BASE_DELAY" default:"500ms"`
	MailMaxDelay      time.Duration `envconfig:"FLUJOS_MAIL_RETRY_MAX_DELAY" default:"8s"`
	StatusMaxAttempts int           `envconfig:"FLUJOS_STATUS_RETRY_MAX_ATTEMPTS" default:"2"`
	StatusBaseDelay   time.Duration `envconfig:"FLUJOS_STATUS_RETRY_BASE_DELAY" default:"300ms"`
	StatusMaxDelay    time.Duration `envconfig:"FLUJOS_STATUS_RETRY_MAX_DELAY" default:"2s"`
}

// RateLimitConfig throttles order creation. Zero window disables it.
type RateLimitConfig struct {
	CreateWindow     time.Duration `envconfig:"FLUJOS_RATE_LIMIT_CREATE_WINDOW" default:"1m"`
	CreateIPLimit    int           `envconfig:"FLUJOS_RATE_LIMIT_CREATE_IP_LIMIT" default:"20"`
	CreateEmailLimit int           `envconfig:"FLUJOS_RATE_LIMIT_CREATE_EMAIL_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FLUJOS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FLUJOS_AUTO_MIGRATE" default:"false"`
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
