package config

// EnvPrefix is passed to envconfig.Process. Struct tags carry the full
// variable names, so the prefix only matters for untagged fields.
const EnvPrefix = "flujos"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names shared between loading code, error messages
// and tests.
const (
	EnvAppEnv       = "FLUJOS_APP_ENV"
	EnvPort         = "FLUJOS_APP_PORT"
	EnvLogLevel     = "FLUJOS_LOG_LEVEL"
	EnvLogWarnStack = "FLUJOS_LOG_WARN_STACK"

	EnvDBDSN    = "FLUJOS_DB_DSN"
	EnvDBDriver = "FLUJOS_DB_DRIVER"
	EnvDBHost   = "FLUJOS_DB_HOST"
	EnvDBPort   = "FLUJOS_DB_PORT"
	EnvDBUser   = "FLUJOS_DB_USER"
	EnvDBPass   = "FLUJOS_DB_PASSWORD"
	EnvDBName   = "FLUJOS_DB_NAME"

	EnvRedisURL = "FLUJOS_REDIS_URL"

	EnvFlowAPIKey    = "FLUJOS_FLOW_API_KEY"
	EnvFlowSecretKey = "FLUJOS_FLOW_SECRET_KEY"
	EnvFlowAPIURL    = "FLUJOS_FLOW_API_URL"

	EnvPublicBaseURL   = "FLUJOS_PUBLIC_BASE_URL"
	EnvDownloadBaseURL = "FLUJOS_DOWNLOAD_BASE_URL"
	EnvClientSecret    = "FLUJOS_CLIENT_SECRET"

	EnvMailerDriver   = "FLUJOS_MAILER_DRIVER"
	EnvMailFrom       = "FLUJOS_MAIL_FROM"
	EnvSendgridAPIKey = "FLUJOS_SENDGRID_API_KEY"
	EnvSMTPHost       = "FLUJOS_SMTP_HOST"

	EnvProductFile     = "FLUJOS_PRODUCT_FILE"
	EnvProductPriceCLP = "FLUJOS_PRODUCT_PRICE_CLP"

	EnvUseSQLite   = "FLUJOS_USE_SQLITE"
	EnvAutoMigrate = "FLUJOS_AUTO_MIGRATE"
)

// legacyDBEnvVars are the discrete connection variables accepted when
// FLUJOS_DB_DSN is not set.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
