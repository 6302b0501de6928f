package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	ProviderRazorpay = "razorpay"
	ProviderStripe   = "stripe"
)

type Config struct {
	Env        string `env:"APP_ENV" env-default:"development"`
	Port       string `env:"PORT" env-default:"8080"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
	CORSOrigin string `env:"CORS_ORIGIN" env-default:"http://localhost:5173"`
	AppURL     string `env:"APP_URL" env-default:"http://localhost:5173"`
	Currency   string `env:"CURRENCY" env-default:"INR"`

	DBURL     string        `env:"DB_URL" env-required:"true"`
	JWTSecret string        `env:"JWT_SECRET" env-required:"true"`
	JWTTTL    time.Duration `env:"JWT_TTL" env-default:"24h"`
	OTPTTL    time.Duration `env:"OTP_TTL" env-default:"10m"`

	Google   Google
	Payments Payments
	SMTP     SMTP
	Redis    Redis
	Queue    Queue
}

type Google struct {
	ClientID         string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret     string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL      string `env:"GOOGLE_REDIRECT_URL"`
	FrontendRedirect string `env:"GOOGLE_FRONTEND_REDIRECT"`
}

// Enabled reports whether the Google login routes should be mounted.
func (g Google) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

type Payments struct {
	Provider              string `env:"PAYMENT_PROVIDER" env-default:"razorpay"`
	RazorpayKeyID         string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string `env:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string `env:"RAZORPAY_WEBHOOK_SECRET"`
	StripeSecretKey       string `env:"STRIPE_SECRET_KEY"`
	StripePublishableKey  string `env:"STRIPE_PUBLISHABLE_KEY"`
	StripeWebhookSecret   string `env:"STRIPE_WEBHOOK_SECRET"`
}

type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     string `env:"SMTP_PORT" env-default:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" env-default:"no-reply@yogastudio.local"`
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type Queue struct {
	URL       string `env:"AMQP_URL"`
	MailQueue string `env:"MAIL_QUEUE" env-default:"mail.outbound"`
}

// IsDevelopment reports whether internal error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found. Using system environment variables.")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad aborts the process when a required variable is missing.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// Validate checks the settings that depend on each other.
func (c *Config) Validate() error {
	var missing []string
	if c.DBURL == "" {
		missing = append(missing, "DB_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	c.Payments.Provider = strings.ToLower(strings.TrimSpace(c.Payments.Provider))
	switch c.Payments.Provider {
	case ProviderRazorpay:
		if c.Payments.RazorpayKeyID == "" {
			missing = append(missing, "RAZORPAY_KEY_ID")
		}
		if c.Payments.RazorpayKeySecret == "" {
			missing = append(missing, "RAZORPAY_KEY_SECRET")
		}
		if c.Payments.RazorpayWebhookSecret == "" {
			missing = append(missing, "RAZORPAY_WEBHOOK_SECRET")
		}
	case ProviderStripe:
		if c.Payments.StripeSecretKey == "" {
			missing = append(missing, "STRIPE_SECRET_KEY")
		}
		if c.Payments.StripeWebhookSecret == "" {
			missing = append(missing, "STRIPE_WEBHOOK_SECRET")
		}
	default:
		return fmt.Errorf("config.Validate: unknown PAYMENT_PROVIDER %q", c.Payments.Provider)
	}

	if len(missing) > 0 {
		return errors.New("config.Validate: missing required environment variables: " + strings.Join(missing, ", "))
	}

	if len(c.Currency) != 3 {
		return fmt.Errorf("config.Validate: CURRENCY must be a 3-letter code, got %q", c.Currency)
	}
	c.Currency = strings.ToUpper(c.Currency)
	return nil
}

// MailWorker is the subset of settings the queue consumer needs.
type MailWorker struct {
	Env      string `env:"APP_ENV" env-default:"development"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
	SMTP     SMTP
	Queue    Queue
}

func LoadMailWorker() (*MailWorker, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found. Using system environment variables.")
	}

	var cfg MailWorker
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config.LoadMailWorker: %w", err)
	}
	var missing []string
	if cfg.Queue.URL == "" {
		missing = append(missing, "AMQP_URL")
	}
	if cfg.SMTP.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if len(missing) > 0 {
		return nil, errors.New("config.LoadMailWorker: missing required environment variables: " + strings.Join(missing, ", "))
	}
	return &cfg, nil
}
