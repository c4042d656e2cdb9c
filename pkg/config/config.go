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
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Email        EmailConfig
	Onboarding   OnboardingConfig
	Webhooks     WebhooksConfig
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
	Env          string `envconfig:"OFICINAFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"OFICINAFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OFICINAFLOW_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"OFICINAFLOW_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"OFICINAFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"OFICINAFLOW_DB_DSN"`
	Driver string `envconfig:"OFICINAFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OFICINAFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"OFICINAFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OFICINAFLOW_DB_USER"`
	LegacyPassword string `envconfig:"OFICINAFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"OFICINAFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"OFICINAFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OFICINAFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OFICINAFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OFICINAFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OFICINAFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"OFICINAFLOW_REDIS_URL"`
	Address      string        `envconfig:"OFICINAFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"OFICINAFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"OFICINAFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OFICINAFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OFICINAFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OFICINAFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OFICINAFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OFICINAFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint has been configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"OFICINAFLOW_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"OFICINAFLOW_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"OFICINAFLOW_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"OFICINAFLOW_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"OFICINAFLOW_ARGON_KEY_LEN" default:"32"`
	TempPasswordLen  int `envconfig:"OFICINAFLOW_TEMP_PASSWORD_LEN" default:"12"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"OFICINAFLOW_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey                string `envconfig:"OFICINAFLOW_STRIPE_API_KEY"`
	Secret                string `envconfig:"OFICINAFLOW_STRIPE_SECRET"`
	Env                   string `envconfig:"OFICINAFLOW_STRIPE_ENV" default:"test"`
	Currency              string `envconfig:"OFICINAFLOW_STRIPE_CURRENCY" default:"brl"`
	SuccessURL            string `envconfig:"OFICINAFLOW_STRIPE_SUCCESS_URL" default:"http://localhost:3000/onboarding/success?session_id={CHECKOUT_SESSION_ID}"`
	CancelURL             string `envconfig:"OFICINAFLOW_STRIPE_CANCEL_URL" default:"http://localhost:3000/onboarding/cancel"`
	SessionLookupLimit    int    `envconfig:"OFICINAFLOW_STRIPE_SESSION_LOOKUP_LIMIT" default:"10"`
	IgnoreAPIVersionCheck bool   `envconfig:"OFICINAFLOW_STRIPE_IGNORE_API_VERSION" default:"true"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// Configured reports whether enough Stripe settings exist to talk to the API.
func (s StripeConfig) Configured() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type EmailConfig struct {
	PostmarkServerToken  string `envconfig:"OFICINAFLOW_POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `envconfig:"OFICINAFLOW_POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `envconfig:"OFICINAFLOW_SENDER_EMAIL" default:"no-reply@oficinaflow.com.br"`
	SupportEmail         string `envconfig:"OFICINAFLOW_SUPPORT_EMAIL" default:"suporte@oficinaflow.com.br"`
	DevOutboxDir         string `envconfig:"OFICINAFLOW_EMAIL_DEV_DIR" default:"tmp/emails"`
}

// PostmarkEnabled reports whether both Postmark tokens were provided.
func (e EmailConfig) PostmarkEnabled() bool {
	return strings.TrimSpace(e.PostmarkServerToken) != "" && strings.TrimSpace(e.PostmarkAccountToken) != ""
}

type OnboardingConfig struct {
	PlaceholderEmailDomain string `envconfig:"OFICINAFLOW_PLACEHOLDER_EMAIL_DOMAIN" default:"oficinaflow.local"`
	AppBaseURL             string `envconfig:"OFICINAFLOW_APP_BASE_URL" default:"http://localhost:3000"`
	TenantHostSuffix       string `envconfig:"OFICINAFLOW_TENANT_HOST_SUFFIX" default:"oficinaflow.com.br"`
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"OFICINAFLOW_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
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
