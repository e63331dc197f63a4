package utils

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Email     EmailConfig
	Twilio    TwilioConfig
	OTP       OTPConfig
	PIX       PIXConfig
	Stripe    StripeConfig
	Storage   StorageConfig
	Booking   BookingConfig
	Retry     RetryConfig
	Churn     ChurnConfig
	Cron      CronConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Name            string
	Env             string
	Port            string
	Debug           bool
	LogPath         string
	AllowedOrigins  []string
	TrustedProxies  []netip.Prefix
	CookieSecure    bool
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
}

// URL returns the postgres:// form used by the migrator.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration // lifetime of a row in sessions
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
	Queue    string
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type OTPConfig struct {
	ExpiryMinutes int
	Length        int
	// MaxAttempts wrong guesses burn the code.
	MaxAttempts int
}

type PIXConfig struct {
	Key           string
	MerchantName  string
	MerchantCity  string
	WebhookSecret string
	ChargeTTL     time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type StorageConfig struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PublicURL    string
}

type BookingConfig struct {
	Timezone            string
	OpenHour            int
	CloseHour           int
	MaxAdvanceDays      int
	CancellationCutoff  time.Duration
	PendingExpiry       time.Duration
	ReminderLead        time.Duration
	AutoAssignOnConfirm bool
}

type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxRetries   int
	BatchSize    int
	// ClaimLease is how long a claimed row may sit in processing before another poller takes it over.
	ClaimLease time.Duration
}

type ChurnConfig struct {
	InactiveDays int
	WinbackLimit int
}

type CronConfig struct {
	RetrySpec    string
	ReminderSpec string
	ExpirySpec   string
	CleanupSpec  string
	ChurnSpec    string
}

type RateLimitConfig struct {
	RPS       float64
	Burst     int
	AuthRPS   float64
	AuthBurst int
}

type CacheConfig struct {
	TTL time.Duration
}

type TelemetryConfig struct {
	OTLPEndpoint string
	OTLPInsecure bool
	SentryDSN    string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "cleaning-booking")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("COOKIE_SECURE", false)
	viper.SetDefault("TRUSTED_PROXIES", "")
	viper.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 15)

	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 10)

	viper.SetDefault("JWT_ISSUER", "cleaning-booking")
	viper.SetDefault("JWT_ACCESS_TTL_MINUTES", 15)
	viper.SetDefault("JWT_REFRESH_TTL_HOURS", 24*7)

	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RABBITMQ_EXCHANGE", "cleaning.events")
	viper.SetDefault("RABBITMQ_QUEUE", "cleaning.notifications")

	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("OTP_EXPIRY_MINUTES", 10)
	viper.SetDefault("OTP_LENGTH", 6)
	viper.SetDefault("OTP_MAX_ATTEMPTS", 5)

	viper.SetDefault("PIX_MERCHANT_NAME", "CLEANING SERVICES")
	viper.SetDefault("PIX_MERCHANT_CITY", "SAO PAULO")
	viper.SetDefault("PIX_CHARGE_TTL_MINUTES", 30)
	viper.SetDefault("STRIPE_CURRENCY", "brl")

	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("S3_USE_PATH_STYLE", true)

	viper.SetDefault("BOOKING_TIMEZONE", "America/Sao_Paulo")
	viper.SetDefault("BOOKING_OPEN_HOUR", 7)
	viper.SetDefault("BOOKING_CLOSE_HOUR", 20)
	viper.SetDefault("BOOKING_MAX_ADVANCE_DAYS", 90)
	viper.SetDefault("BOOKING_CANCELLATION_CUTOFF_HOURS", 24)
	viper.SetDefault("BOOKING_PENDING_EXPIRY_MINUTES", 60)
	viper.SetDefault("REMINDER_LEAD_HOURS", 24)
	viper.SetDefault("BOOKING_AUTO_ASSIGN", true)

	viper.SetDefault("RETRY_INITIAL_DELAY_SECONDS", 30)
	viper.SetDefault("RETRY_MAX_DELAY_SECONDS", 3600)
	viper.SetDefault("RETRY_MAX_RETRIES", 5)
	viper.SetDefault("RETRY_BATCH_SIZE", 20)
	viper.SetDefault("RETRY_CLAIM_LEASE_SECONDS", 300)

	viper.SetDefault("CHURN_INACTIVE_DAYS", 60)
	viper.SetDefault("CHURN_WINBACK_LIMIT", 50)

	viper.SetDefault("CRON_RETRY", "@every 1m")
	viper.SetDefault("CRON_REMINDER", "*/15 * * * *")
	viper.SetDefault("CRON_EXPIRY", "*/5 * * * *")
	viper.SetDefault("CRON_CLEANUP", "0 3 * * *")
	viper.SetDefault("CRON_CHURN", "0 9 * * 1")

	viper.SetDefault("RATE_LIMIT_RPS", 20)
	viper.SetDefault("RATE_LIMIT_BURST", 40)
	viper.SetDefault("RATE_LIMIT_AUTH_RPS", 1)
	viper.SetDefault("RATE_LIMIT_AUTH_BURST", 5)
	viper.SetDefault("CACHE_TTL_SECONDS", 300)

	// .env is optional, plain environment variables work too
	if _, err := os.Stat(".env"); err == nil {
		if err := viper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:            viper.GetString("APP_NAME"),
			Env:             viper.GetString("APP_ENV"),
			Port:            viper.GetString("PORT"),
			Debug:           viper.GetBool("DEBUG"),
			LogPath:         viper.GetString("LOG_PATH"),
			AllowedOrigins:  splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
			CookieSecure:    viper.GetBool("COOKIE_SECURE"),
			ShutdownTimeout: seconds(viper.GetInt("SHUTDOWN_TIMEOUT_SECONDS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("JWT_SECRET"),
			Issuer:     viper.GetString("JWT_ISSUER"),
			AccessTTL:  time.Duration(viper.GetInt("JWT_ACCESS_TTL_MINUTES")) * time.Minute,
			RefreshTTL: time.Duration(viper.GetInt("JWT_REFRESH_TTL_HOURS")) * time.Hour,
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      viper.GetString("RABBITMQ_URL"),
			Exchange: viper.GetString("RABBITMQ_EXCHANGE"),
			Queue:    viper.GetString("RABBITMQ_QUEUE"),
		},
		Email: EmailConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASS"),
			From:     viper.GetString("EMAIL_FROM"),
		},
		Twilio: TwilioConfig{
			AccountSID: viper.GetString("TWILIO_ACCOUNT_SID"),
			AuthToken:  viper.GetString("TWILIO_AUTH_TOKEN"),
			FromNumber: viper.GetString("TWILIO_FROM_NUMBER"),
		},
		OTP: OTPConfig{
			ExpiryMinutes: viper.GetInt("OTP_EXPIRY_MINUTES"),
			Length:        viper.GetInt("OTP_LENGTH"),
			MaxAttempts:   viper.GetInt("OTP_MAX_ATTEMPTS"),
		},
		PIX: PIXConfig{
			Key:           viper.GetString("PIX_KEY"),
			MerchantName:  viper.GetString("PIX_MERCHANT_NAME"),
			MerchantCity:  viper.GetString("PIX_MERCHANT_CITY"),
			WebhookSecret: viper.GetString("PIX_WEBHOOK_SECRET"),
			ChargeTTL:     time.Duration(viper.GetInt("PIX_CHARGE_TTL_MINUTES")) * time.Minute,
		},
		Stripe: StripeConfig{
			SecretKey:     viper.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: viper.GetString("STRIPE_WEBHOOK_SECRET"),
			Currency:      viper.GetString("STRIPE_CURRENCY"),
		},
		Storage: StorageConfig{
			Endpoint:     viper.GetString("S3_ENDPOINT"),
			Region:       viper.GetString("S3_REGION"),
			Bucket:       viper.GetString("S3_BUCKET"),
			AccessKey:    viper.GetString("S3_ACCESS_KEY"),
			SecretKey:    viper.GetString("S3_SECRET_KEY"),
			UsePathStyle: viper.GetBool("S3_USE_PATH_STYLE"),
			PublicURL:    viper.GetString("S3_PUBLIC_URL"),
		},
		Booking: BookingConfig{
			Timezone:            viper.GetString("BOOKING_TIMEZONE"),
			OpenHour:            viper.GetInt("BOOKING_OPEN_HOUR"),
			CloseHour:           viper.GetInt("BOOKING_CLOSE_HOUR"),
			MaxAdvanceDays:      viper.GetInt("BOOKING_MAX_ADVANCE_DAYS"),
			CancellationCutoff:  time.Duration(viper.GetInt("BOOKING_CANCELLATION_CUTOFF_HOURS")) * time.Hour,
			PendingExpiry:       time.Duration(viper.GetInt("BOOKING_PENDING_EXPIRY_MINUTES")) * time.Minute,
			ReminderLead:        time.Duration(viper.GetInt("REMINDER_LEAD_HOURS")) * time.Hour,
			AutoAssignOnConfirm: viper.GetBool("BOOKING_AUTO_ASSIGN"),
		},
		Retry: RetryConfig{
			InitialDelay: seconds(viper.GetInt("RETRY_INITIAL_DELAY_SECONDS")),
			MaxDelay:     seconds(viper.GetInt("RETRY_MAX_DELAY_SECONDS")),
			MaxRetries:   viper.GetInt("RETRY_MAX_RETRIES"),
			BatchSize:    viper.GetInt("RETRY_BATCH_SIZE"),
			ClaimLease:   seconds(viper.GetInt("RETRY_CLAIM_LEASE_SECONDS")),
		},
		Churn: ChurnConfig{
			InactiveDays: viper.GetInt("CHURN_INACTIVE_DAYS"),
			WinbackLimit: viper.GetInt("CHURN_WINBACK_LIMIT"),
		},
		Cron: CronConfig{
			RetrySpec:    viper.GetString("CRON_RETRY"),
			ReminderSpec: viper.GetString("CRON_REMINDER"),
			ExpirySpec:   viper.GetString("CRON_EXPIRY"),
			CleanupSpec:  viper.GetString("CRON_CLEANUP"),
			ChurnSpec:    viper.GetString("CRON_CHURN"),
		},
		RateLimit: RateLimitConfig{
			RPS:       viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:     viper.GetInt("RATE_LIMIT_BURST"),
			AuthRPS:   viper.GetFloat64("RATE_LIMIT_AUTH_RPS"),
			AuthBurst: viper.GetInt("RATE_LIMIT_AUTH_BURST"),
		},
		Cache: CacheConfig{
			TTL: seconds(viper.GetInt("CACHE_TTL_SECONDS")),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: viper.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			OTLPInsecure: viper.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
			SentryDSN:    viper.GetString("SENTRY_DSN"),
		},
	}

	if config.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	proxies, err := ParseTrustedProxies(splitList(viper.GetString("TRUSTED_PROXIES")))
	if err != nil {
		return nil, err
	}
	config.App.TrustedProxies = proxies

	return config, nil
}

// Location resolves the booking timezone, falling back to the process zone.
func (c BookingConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
