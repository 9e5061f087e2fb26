package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"natours/src/types"
)

const (
	DefaultPort       = "8000"
	DefaultPublicDir  = "public"
	MaxJSONBodyBytes  = 5 << 10
	MaxUploadBodySize = 10 << 20
)

type Config struct {
	Env  types.Environment
	Port string
	DSN  string

	JWTSecret            string
	JWTExpiresIn         time.Duration
	PasswordSaltRounds   int
	PasswordResetExpires time.Duration

	EmailFrom        string
	MailTransport    string
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	SendGridUser     string
	SendGridAPIKey   string
	StripeSecretKey  string
	StripePublicKey  string
	StripeWebhookKey string

	RedisURL     string
	RateLimitMax int64

	S3AssetsBucket    string
	PublicDir         string
	BookingPendingTTL time.Duration
	AppHost           string
}

// Load reads the configuration from the environment. Call godotenv before
// Load when a .env file should be honored.
func Load() (*Config, error) {
	cfg := &Config{
		Env:                  types.Environment(getenv("API_ENV", string(types.Development))),
		Port:                 getenv("PORT", DefaultPort),
		DSN:                  os.Getenv("DATABASE_URL"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		JWTExpiresIn:         time.Duration(getint("JWT_EXPIRES_IN", 90)) * 24 * time.Hour,
		PasswordSaltRounds:   getint("PASSWORD_SALT_ROUNDS", 12),
		PasswordResetExpires: time.Duration(getint("PASSWORD_RESET_EXPIRES_IN", 10)) * time.Minute,
		EmailFrom:            getenv("EMAIL_FROM", "hello@natours.dev"),
		MailTransport:        strings.ToLower(os.Getenv("MAIL_TRANSPORT")),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             getint("SMTP_PORT", 587),
		SMTPUsername:         os.Getenv("SMTP_USERNAME"),
		SMTPPassword:         os.Getenv("SMTP_PASSWORD"),
		SendGridUser:         getenv("SENDGRID_SMTP_USER", "apikey"),
		SendGridAPIKey:       os.Getenv("SENDGRID_API_KEY"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripePublicKey:      os.Getenv("STRIPE_PUBLIC_KEY"),
		StripeWebhookKey:     os.Getenv("STRIPE_WEBHOOK_SECRET"),
		RedisURL:             os.Getenv("REDIS_HOST"),
		RateLimitMax:         int64(getint("RATE_LIMIT_MAX", 100)),
		S3AssetsBucket:       os.Getenv("S3_ASSETS_BUCKET"),
		PublicDir:            getenv("PUBLIC_DIR", DefaultPublicDir),
		AppHost:              os.Getenv("APP_HOST"),
	}
	ttl, err := time.ParseDuration(getenv("BOOKING_PENDING_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_PENDING_TTL: %w", err)
	}
	cfg.BookingPendingTTL = ttl
	if cfg.DSN == "" {
		cfg.DSN = GetDSN()
	}
	if cfg.MailTransport == "" {
		cfg.MailTransport = "smtp"
		if cfg.IsProd() {
			cfg.MailTransport = "sendgrid"
		}
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func (c *Config) IsProd() bool {
	return c.Env == types.Production
}

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := getenv("DATABASE_PORT", "5432")
	DATABASE_SSLMODE := getenv("DATABASE_SSLMODE", "disable")
	DATABASE_TIMEZONE := getenv("DATABASE_TIMEZONE", "UTC")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
