package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DBUrl              string
	JWTSecret          string
	CronSecret         string
	BillingSecret      string
	MailerAPIURL       string
	MailerAPIKey       string
	MailerFrom         string
	SupabaseURL        string
	SupabaseBucket     string
	SupabaseServiceKey string
	AppEnv             string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DBUrl:              getEnv("DB_URL", ""),
		JWTSecret:          jwtSecret,
		CronSecret:         getEnv("CRON_SECRET", ""),
		BillingSecret:      getEnv("BILLING_WEBHOOK_SECRET", ""),
		MailerAPIURL:       getEnv("MAILER_API_URL", "https://api.resend.com"),
		MailerAPIKey:       getEnv("MAILER_API_KEY", ""),
		MailerFrom:         getEnv("MAILER_FROM", ""),
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseBucket:     getEnv("SUPABASE_BUCKET", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		AppEnv:             normalizeEnv(getEnv("APP_ENV", "production")),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

// MailerConfigured reports whether transactional email can be sent at all.
// Hook endpoints that exist only to send email return 500 when it is false.
func (c *Config) MailerConfigured() bool {
	return c != nil && c.MailerAPIKey != "" && c.MailerFrom != ""
}
