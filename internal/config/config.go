package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"8090"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	BackendURL     string        `envconfig:"BACKEND_URL" default:"http://localhost:8080/api"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	FinalizeStatus string        `envconfig:"FINALIZE_STATUS" default:"Accepted"`

	// vnpay talks to the payment-url microservice, stripe creates Checkout Sessions.
	PaymentProvider   string `envconfig:"PAYMENT_PROVIDER" default:"vnpay"`
	PaymentServiceURL string `envconfig:"PAYMENT_SERVICE_URL" default:"http://localhost:3000"`
	StripeSecretKey   string `envconfig:"STRIPE_SECRET_KEY"`
	StripeCurrency    string `envconfig:"STRIPE_CURRENCY" default:"vnd"`
	ReturnURL         string `envconfig:"RETURN_URL" default:"http://localhost:8090/cart/return"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	// how often sessions idle for longer than SessionTTL are dropped from memory
	SessionSweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"5m"`

	JournalPath    string `envconfig:"JOURNAL_PATH" default:"storefront.db"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"./internal/journal/migrations"`

	// empty disables the kafka fan-out of cart-changed signals
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"cart-changed"`

	SuccessRedirectDelay time.Duration `envconfig:"SUCCESS_REDIRECT_DELAY" default:"3s"`
	ShutdownTimeout      time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is fine, variables may come from the environment
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
