package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StockPolicyLenient = "lenient"
	StockPolicyStrict  = "strict"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	AppPort   string
	AppEnv    string
	APIURL    string
	JWTSecret string

	// InternalSecretKey lets trusted services bypass the public rate limits.
	InternalSecretKey string

	CORSOrigins []string

	StockPolicy string

	NotifyTimeout           time.Duration
	NotifyFallbackRecipient string

	SMTPHost      string
	SMTPPort      string
	SMTPEmail     string
	SMTPPassword  string
	SMTPFromName  string
	SMTPFromEmail string

	KafkaBrokers     []string
	KafkaNotifyTopic string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),

		AppPort:   getenv("APP_PORT", "4000"),
		AppEnv:    os.Getenv("APP_ENV"),
		APIURL:    strings.TrimRight(getenv("API_URL", "/api/v1"), "/"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		InternalSecretKey: os.Getenv("INTERNAL_SECRET_KEY"),

		CORSOrigins: splitCSV(getenv("CORS_ORIGINS", "*")),

		StockPolicy: strings.ToLower(getenv("STOCK_POLICY", StockPolicyLenient)),

		NotifyTimeout:           parseDuration(os.Getenv("NOTIFY_TIMEOUT"), 10*time.Second),
		NotifyFallbackRecipient: getenv("NOTIFY_FALLBACK_RECIPIENT", "customer@example.com"),

		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      getenv("SMTP_PORT", "587"),
		SMTPEmail:     os.Getenv("SMTP_EMAIL"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SMTPFromName:  os.Getenv("SMTP_FROM_NAME"),
		SMTPFromEmail: os.Getenv("SMTP_FROM_EMAIL"),

		KafkaBrokers:     splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaNotifyTopic: getenv("KAFKA_NOTIFY_TOPIC", "order-notifications"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	return cfg
}

// Validate checks the values that have a closed set of legal settings.
func (c *Config) Validate() error {
	switch c.StockPolicy {
	case StockPolicyLenient, StockPolicyStrict:
	default:
		return fmt.Errorf("unknown STOCK_POLICY %q (use %q or %q)", c.StockPolicy, StockPolicyLenient, StockPolicyStrict)
	}

	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive, got %s", c.NotifyTimeout)
	}

	return nil
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return -1
	}
	return d
}
