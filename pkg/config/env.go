package config

// EnvPrefix is handed to envconfig; every field also carries its fully qualified name.
const EnvPrefix = "SIXSTREET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "SIXSTREET_APP_ENV"
	EnvPort      = "SIXSTREET_APP_PORT"
	EnvLogLevel  = "SIXSTREET_LOG_LEVEL"
	EnvLogFormat = "SIXSTREET_LOG_FORMAT"

	EnvRedisURL  = "SIXSTREET_REDIS_URL"
	EnvRedisAddr = "SIXSTREET_REDIS_ADDR"

	EnvDBDSN    = "SIXSTREET_DB_DSN"
	EnvDBDriver = "SIXSTREET_DB_DRIVER"
	EnvDBHost   = "SIXSTREET_DB_HOST"
	EnvDBUser   = "SIXSTREET_DB_USER"
	EnvDBName   = "SIXSTREET_DB_NAME"

	EnvCheckoutStore      = "SIXSTREET_CHECKOUT_STORE"
	EnvCheckoutSessionTTL = "SIXSTREET_CHECKOUT_SESSION_TTL"

	EnvBackendBaseURL = "SIXSTREET_BACKEND_BASE_URL"

	EnvCORSAllowedOrigins = "SIXSTREET_CORS_ALLOWED_ORIGINS"

	EnvTrustedProxies = "SIXSTREET_RATE_LIMIT_TRUSTED_PROXIES"

	EnvShippingBaseURL  = "SIXSTREET_SHIPPING_BASE_URL"
	EnvShippingAPIKey   = "SIXSTREET_SHIPPING_API_KEY"
	EnvShippingOriginID = "SIXSTREET_SHIPPING_ORIGIN_ID"
	EnvShippingWeight   = "SIXSTREET_SHIPPING_WEIGHT_GRAMS"
	EnvShippingCouriers = "SIXSTREET_SHIPPING_COURIERS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
