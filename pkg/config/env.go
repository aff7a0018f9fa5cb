package config

// EnvPrefix is empty because every field carries its fully qualified
// RETURNS_* key in the envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "RETURNS_APP_ENV"
	EnvPort     = "RETURNS_APP_PORT"
	EnvLogLevel = "RETURNS_LOG_LEVEL"

	EnvDBDSN  = "RETURNS_DB_DSN"
	EnvDBHost = "RETURNS_DB_HOST"
	EnvDBUser = "RETURNS_DB_USER"
	EnvDBName = "RETURNS_DB_NAME"

	EnvRedisURL = "RETURNS_REDIS_URL"

	EnvJWTSecret  = "RETURNS_JWT_SECRET"
	EnvJWTIssuer  = "RETURNS_JWT_ISSUER"
	EnvJWTExpMins = "RETURNS_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "RETURNS_GCP_PROJECT_ID"

	EnvPubSubReturnsTopic    = "RETURNS_PUBSUB_RETURNS_TOPIC"
	EnvPubSubNotificationSub = "RETURNS_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvShippingShopProvince  = "RETURNS_SHIPPING_SHOP_PROVINCE"
	EnvShippingFreeThreshold = "RETURNS_SHIPPING_FREE_THRESHOLD"

	EnvReturnsWindowDays = "RETURNS_WINDOW_DAYS"
	EnvUseSQLite         = "RETURNS_USE_SQLITE"

	EnvSMTPHost = "RETURNS_SMTP_HOST"
	EnvSMTPFrom = "RETURNS_SMTP_FROM"
)

// legacyDBEnvVars must all be set when no DSN is supplied.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
