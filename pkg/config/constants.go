package config

const EnvPrefix = "REGPAY"

const (
	AppEnvDev = "dev"

	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"

	CashfreeModeSandbox    = "sandbox"
	CashfreeModeProduction = "production"

	WebhookPath = "/verifyPaymentWebhook"
)

const (
	EnvAppEnv      = "REGPAY_APP_ENV"
	EnvPort        = "REGPAY_APP_PORT"
	EnvPublicHost  = "REGPAY_PUBLIC_HOST"
	EnvStoreDriver = "REGPAY_STORE_DRIVER"

	EnvDBDSN  = "REGPAY_DB_DSN"
	EnvDBHost = "REGPAY_DB_HOST"
	EnvDBUser = "REGPAY_DB_USER"
	EnvDBName = "REGPAY_DB_NAME"

	EnvMongoURI = "REGPAY_MONGO_URI"
	EnvRedisURL = "REGPAY_REDIS_URL"

	EnvCashfreeClientID  = "REGPAY_CASHFREE_CLIENT_ID"
	EnvCashfreeSecretKey = "REGPAY_CASHFREE_SECRET_KEY"
	EnvCashfreeMode      = "REGPAY_CASHFREE_MODE"

	EnvPubSubPaymentsTopic = "REGPAY_PUBSUB_PAYMENTS_TOPIC"
	EnvGCPProjectID        = "REGPAY_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
