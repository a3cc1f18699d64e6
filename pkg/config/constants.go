package config

// EnvPrefix is the envconfig prefix shared by every service binary.
const EnvPrefix = "SVPHARMA"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv     = "SVPHARMA_APP_ENV"
	EnvPort       = "SVPHARMA_APP_PORT"
	EnvDBDSN      = "SVPHARMA_DB_DSN"
	EnvDBHost     = "SVPHARMA_DB_HOST"
	EnvDBUser     = "SVPHARMA_DB_USER"
	EnvDBName     = "SVPHARMA_DB_NAME"
	EnvRedisURL   = "SVPHARMA_REDIS_URL"
	EnvJWTSecret  = "SVPHARMA_JWT_SECRET"
	EnvJWTIssuer  = "SVPHARMA_JWT_ISSUER"
	EnvJWTExpMins = "SVPHARMA_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
