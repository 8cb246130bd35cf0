package config

const (
	EnvPrefix = "BRICKFIELD"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BRICKFIELD_DB_DSN"
	EnvDBHost = "BRICKFIELD_DB_HOST"
	EnvDBUser = "BRICKFIELD_DB_USER"
	EnvDBName = "BRICKFIELD_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
