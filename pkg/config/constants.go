package config

// EnvPrefix is the envconfig prefix shared by every section.
const EnvPrefix = "booktifi"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "BOOKTIFI_APP_ENV"
	EnvPort     = "BOOKTIFI_APP_PORT"
	EnvDBDSN    = "BOOKTIFI_DB_DSN"
	EnvDBHost   = "BOOKTIFI_DB_HOST"
	EnvDBUser   = "BOOKTIFI_DB_USER"
	EnvDBName   = "BOOKTIFI_DB_NAME"
	EnvRedisURL = "BOOKTIFI_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
