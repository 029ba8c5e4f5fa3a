package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig

	// BaseCallbackURL is the public root the gateways call back on,
	// e.g. https://api.eduka.org
	BaseCallbackURL string

	Card        CardConfig
	PayPal      PayPalConfig
	OrangeMoney MobileMoneyConfig
	MoovMoney   MobileMoneyConfig
	Wave        MobileMoneyConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type CardConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
}

type PayPalConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

type MobileMoneyConfig struct {
	BaseURL     string
	APIKey      string
	APISecret   string
	CountryCode string
	Prefixes    []string
	LocalDigits int
}

func Load() (*Config, error) {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8031"),
			Env:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "eduka_ledger"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		BaseCallbackURL: getEnv("BASE_CALLBACK_URL", "http://localhost:8031"),
		Card: CardConfig{
			BaseURL:       getEnv("CARD_BASE_URL", "https://api.cardprocessor.example"),
			APIKey:        getEnv("CARD_API_KEY", ""),
			WebhookSecret: getEnv("CARD_WEBHOOK_SECRET", ""),
		},
		PayPal: PayPalConfig{
			BaseURL:      getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
			ClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
			ClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
		},
		OrangeMoney: MobileMoneyConfig{
			BaseURL:     getEnv("ORANGE_BASE_URL", "https://api.orange.com/orange-money-webpay"),
			APIKey:      getEnv("ORANGE_API_KEY", ""),
			APISecret:   getEnv("ORANGE_API_SECRET", ""),
			CountryCode: getEnv("ORANGE_COUNTRY_CODE", "+223"),
			Prefixes:    getEnvList("ORANGE_PREFIXES", []string{"7", "9"}),
			LocalDigits: getEnvInt("ORANGE_LOCAL_DIGITS", 8),
		},
		MoovMoney: MobileMoneyConfig{
			BaseURL:     getEnv("MOOV_BASE_URL", "https://api.moov-africa.com"),
			APIKey:      getEnv("MOOV_API_KEY", ""),
			APISecret:   getEnv("MOOV_API_SECRET", ""),
			CountryCode: getEnv("MOOV_COUNTRY_CODE", "+223"),
			Prefixes:    getEnvList("MOOV_PREFIXES", []string{"6", "8"}),
			LocalDigits: getEnvInt("MOOV_LOCAL_DIGITS", 8),
		},
		Wave: MobileMoneyConfig{
			BaseURL:     getEnv("WAVE_BASE_URL", "https://api.wave.com"),
			APIKey:      getEnv("WAVE_API_KEY", ""),
			CountryCode: getEnv("WAVE_COUNTRY_CODE", "+221"),
			Prefixes:    getEnvList("WAVE_PREFIXES", []string{"70", "75", "76", "77", "78"}),
			LocalDigits: getEnvInt("WAVE_LOCAL_DIGITS", 9),
		},
	}

	if cfg.Server.Env == "production" {
		if cfg.Card.WebhookSecret == "" {
			return nil, fmt.Errorf("CARD_WEBHOOK_SECRET is required in production")
		}
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("DB_PASSWORD is required in production")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return fallback
}
