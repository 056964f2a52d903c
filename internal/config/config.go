package config

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const DefaultQPayBaseURL = "https://merchant.qpay.mn"

var ErrMissingDBHost = errors.New("environment variables not loaded properly: DB_HOST is empty")

type Config struct {
	DBHost      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBPort      string
	AppPort     string
	AppEnv      string
	JWTSecret   string
	// InternalKey grants the internal rate limit tier via X-Service-Auth.
	InternalKey string

	QPay QPayConfig
}

// QPayConfig is the provider configuration handed to the QPay payment provider.
type QPayConfig struct {
	Username    string
	Password    string
	InvoiceCode string
	BaseURL     string
	CallbackURL string

	// Mock short-circuits gateway status checks with a synthetic PAID row.
	Mock bool
	// DeterministicInvoiceNo drops the timestamp from sender_invoice_no.
	DeterministicInvoiceNo bool
}

func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:      os.Getenv("DB_HOST"),
		DBUser:      os.Getenv("DB_USER"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      os.Getenv("DB_NAME"),
		DBPort:      os.Getenv("DB_PORT"),
		AppPort:     envOr("APP_PORT", "9000"),
		AppEnv:      os.Getenv("APP_ENV"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		InternalKey: os.Getenv("INTERNAL_SERVICE_KEY"),
		QPay:        loadQPay(),
	}

	if cfg.DBHost == "" {
		return nil, ErrMissingDBHost
	}

	return cfg, nil
}

func loadQPay() QPayConfig {
	appEnv := os.Getenv("APP_ENV")

	return QPayConfig{
		Username:               os.Getenv("QPAY_USERNAME"),
		Password:               os.Getenv("QPAY_PASSWORD"),
		InvoiceCode:            os.Getenv("QPAY_INVOICE_CODE"),
		BaseURL:                strings.TrimSuffix(envOr("QPAY_BASE_URL", DefaultQPayBaseURL), "/"),
		CallbackURL:            os.Getenv("QPAY_CALLBACK_URL"),
		Mock:                   appEnv == "development" || envBool("QPAY_MOCK"),
		DeterministicInvoiceNo: envBool("QPAY_DETERMINISTIC_INVOICE_NO"),
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), "true")
}
