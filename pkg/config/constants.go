package config

// EnvPrefix namespaces every environment variable this service reads.
const EnvPrefix = "COMMONROOM"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvDBDSN  = "COMMONROOM_DB_DSN"
	EnvDBHost = "COMMONROOM_DB_HOST"
	EnvDBUser = "COMMONROOM_DB_USER"
	EnvDBName = "COMMONROOM_DB_NAME"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
