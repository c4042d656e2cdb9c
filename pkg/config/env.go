package config

// EnvPrefix is handed to envconfig; every field carries an explicit envconfig tag.
const EnvPrefix = "OFICINAFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "OFICINAFLOW_APP_ENV"
	EnvPort     = "OFICINAFLOW_APP_PORT"
	EnvLogLevel = "OFICINAFLOW_LOG_LEVEL"

	EnvDBDSN    = "OFICINAFLOW_DB_DSN"
	EnvDBDriver = "OFICINAFLOW_DB_DRIVER"
	EnvDBHost   = "OFICINAFLOW_DB_HOST"
	EnvDBUser   = "OFICINAFLOW_DB_USER"
	EnvDBName   = "OFICINAFLOW_DB_NAME"

	EnvRedisURL = "OFICINAFLOW_REDIS_URL"

	EnvStripeAPIKey = "OFICINAFLOW_STRIPE_API_KEY"
	EnvStripeSecret = "OFICINAFLOW_STRIPE_SECRET"
	EnvStripeEnv    = "OFICINAFLOW_STRIPE_ENV"

	EnvPostmarkServerToken  = "OFICINAFLOW_POSTMARK_SERVER_TOKEN"
	EnvPostmarkAccountToken = "OFICINAFLOW_POSTMARK_ACCOUNT_TOKEN"

	EnvWebhookIdempotencyTTL = "OFICINAFLOW_WEBHOOK_IDEMPOTENCY_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
