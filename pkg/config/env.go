package config

// EnvPrefix is passed to envconfig; individual fields carry the full
// variable name so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "FRESHMART_DB_DSN"
	EnvDBHost = "FRESHMART_DB_HOST"
	EnvDBUser = "FRESHMART_DB_USER"
	EnvDBName = "FRESHMART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
