package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env        string `env:"APP_ENV" env-default:"local"`
	Port       string `env:"PORT" env-default:"8080"`
	DBURL      string `env:"DB_URL" env-required:"true"`
	JWTSecret  string `env:"JWT_SECRET" env-required:"true"`
	CORSOrigin string `env:"CORS_ORIGIN" env-default:"http://localhost:5173"`

	// AppURL is the buyer-facing frontend, APIURL is where this service is reachable
	// from the payment provider's redirect.
	AppURL string `env:"APP_URL" env-default:"http://localhost:5173"`
	APIURL string `env:"API_URL" env-default:"http://localhost:8080"`

	Stripe   Stripe
	Google   Google
	Redis    Redis
	RabbitMQ RabbitMQ
	Failsafe Failsafe
}

type Stripe struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY" env-required:"true"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET" env-required:"true"`
	PriceMapPath  string `env:"PRICE_MAP_PATH"`
}

type Google struct {
	ClientID         string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret     string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL      string `env:"GOOGLE_REDIRECT_URL"`
	FrontendRedirect string `env:"GOOGLE_FRONTEND_REDIRECT"`
}

// Enabled reports whether Google sign-in is configured at all.
func (g Google) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	TLS      bool   `env:"REDIS_TLS" env-default:"false"`
}

type RabbitMQ struct {
	URL string `env:"RABBITMQ_URL"`
}

type Failsafe struct {
	Attempts uint          `env:"FAILSAFE_ATTEMPTS" env-default:"5"`
	Delay    time.Duration `env:"FAILSAFE_DELAY" env-default:"2s"`
}

// MustLoad reads an optional .env file and then the process environment.
// Missing required keys stop the process.
func MustLoad() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	return &cfg
}
