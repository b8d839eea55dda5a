package config

const (
	EnvPrefix = "STORETRACK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STORETRACK_APP_ENV"
	EnvPort     = "STORETRACK_APP_PORT"
	EnvDBDSN    = "STORETRACK_DB_DSN"
	EnvDBHost   = "STORETRACK_DB_HOST"
	EnvDBPort   = "STORETRACK_DB_PORT"
	EnvDBUser   = "STORETRACK_DB_USER"
	EnvDBPass   = "STORETRACK_DB_PASSWORD"
	EnvDBName   = "STORETRACK_DB_NAME"
	EnvDBSSL    = "STORETRACK_DB_SSLMODE"
	EnvRedisURL = "STORETRACK_REDIS_URL"

	EnvJWTSecret  = "STORETRACK_JWT_SECRET"
	EnvJWTIssuer  = "STORETRACK_JWT_ISSUER"
	EnvJWTExpMins = "STORETRACK_JWT_EXPIRATION_MINUTES"

	EnvSalesMaxCheckoutLines = "STORETRACK_SALES_MAX_CHECKOUT_LINES"
	EnvSalesDefaultPageSize  = "STORETRACK_SALES_DEFAULT_PAGE_SIZE"
	EnvSalesMaxPageSize      = "STORETRACK_SALES_MAX_PAGE_SIZE"

	EnvGCPProjectID     = "STORETRACK_GCP_PROJECT_ID"
	EnvPubSubSalesTopic = "STORETRACK_PUBSUB_SALES_TOPIC"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
