package config

const EnvPrefix = "CAFEFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	TransitionPolicyStrict     = "strict"
	TransitionPolicyPermissive = "permissive"

	StatisticsSourceScan     = "scan"
	StatisticsSourceCounters = "counters"

	defaultSQLiteDSN = "file:cafeflow.db?cache=shared&_foreign_keys=on"
)

const (
	EnvAppEnv                  = "CAFEFLOW_APP_ENV"
	EnvPort                    = "CAFEFLOW_APP_PORT"
	EnvDBDSN                   = "CAFEFLOW_DB_DSN"
	EnvDBDriver                = "CAFEFLOW_DB_DRIVER"
	EnvDBHost                  = "CAFEFLOW_DB_HOST"
	EnvDBUser                  = "CAFEFLOW_DB_USER"
	EnvDBName                  = "CAFEFLOW_DB_NAME"
	EnvDBPassword              = "CAFEFLOW_DB_PASSWORD"
	EnvRedisURL                = "CAFEFLOW_REDIS_URL"
	EnvJWTSecret               = "CAFEFLOW_JWT_SECRET"
	EnvJWTIssuer               = "CAFEFLOW_JWT_ISSUER"
	EnvJWTExpMins              = "CAFEFLOW_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite               = "CAFEFLOW_USE_SQLITE"
	EnvOrdersTransitionPolicy  = "CAFEFLOW_ORDERS_TRANSITION_POLICY"
	EnvOrdersMaxUpdateAttempts = "CAFEFLOW_ORDERS_MAX_UPDATE_ATTEMPTS"
	EnvOrdersStatisticsSource  = "CAFEFLOW_ORDERS_STATISTICS_SOURCE"
	EnvAuditSinks              = "CAFEFLOW_AUDIT_SINKS"
	EnvKafkaBrokers            = "CAFEFLOW_KAFKA_BROKERS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
