package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Security settings
	JWTSecret string

	// Inter Banking provider
	InterBankingAuthURL       string
	InterBankingAPIURL        string
	InterBankingBalancesURL   string
	InterBankingClientID      string
	InterBankingClientSecret  string
	InterBankingCustomerID    string
	InterBankingServiceHeader string
	ProviderTimeout           time.Duration
	ProviderRequestsPerSecond float64

	// Reconciliation job
	ReconcileInterval    time.Duration
	ReconcileConcurrency int
	ReportCacheTTL       time.Duration
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
func LoadConfig() {
	load(true)
}

// LoadJobConfig is LoadConfig for the reconciliation job, which serves no API
// and therefore does not need JWT_SECRET.
func LoadJobConfig() {
	load(false)
}

func load(requireJWTSecret bool) {
	errEnv := godotenv.Load()
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	var jwtSecret string
	if requireJWTSecret {
		jwtSecret = getRequiredEnv("JWT_SECRET")
	} else {
		jwtSecret = getSecretEnv("JWT_SECRET")
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./vertex.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		JWTSecret: jwtSecret,

		InterBankingAuthURL:       getEnv("INTERBANKING_AUTH_URL", ""),
		InterBankingAPIURL:        getEnv("INTERBANKING_API_URL", ""),
		InterBankingBalancesURL:   getEnv("INTERBANKING_BALANCES_URL", ""),
		InterBankingClientID:      getEnv("INTERBANKING_CLIENT_ID", ""),
		InterBankingClientSecret:  getSecretEnv("INTERBANKING_CLIENT_SECRET"),
		InterBankingCustomerID:    getEnv("INTERBANKING_CUSTOMER_ID", ""),
		InterBankingServiceHeader: getEnv("INTERBANKING_SERVICE_HEADER", ""),
		ProviderTimeout:           getEnvAsDuration("PROVIDER_TIMEOUT", 30*time.Second),
		ProviderRequestsPerSecond: getEnvAsFloat("PROVIDER_REQUESTS_PER_SECOND", 5),

		ReconcileInterval:    getEnvAsDuration("RECONCILE_INTERVAL", 0),
		ReconcileConcurrency: getEnvAsInt("RECONCILE_CONCURRENCY", 1),
		ReportCacheTTL:       getEnvAsDuration("REPORT_CACHE_TTL", 24*time.Hour),
	}

	if Cfg.ReconcileConcurrency < 1 {
		log.Printf("WARNING: RECONCILE_CONCURRENCY must be >= 1, got %d. Using 1.", Cfg.ReconcileConcurrency)
		Cfg.ReconcileConcurrency = 1
	}
	if Cfg.InterBankingAuthURL == "" || Cfg.InterBankingAPIURL == "" || Cfg.InterBankingBalancesURL == "" {
		log.Println("WARNING: Inter Banking URLs are not fully configured. Reconciliation runs will fail at the provider boundary.")
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, ReconcileInterval=%s, ReconcileConcurrency=%d",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.ReconcileInterval, Cfg.ReconcileConcurrency)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getSecretEnv is getEnv without echoing anything into the log.
func getSecretEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		log.Printf("Environment variable %s not set", key)
	}
	return value
}

// getRequiredEnv retrieves an environment variable or terminates the application if not set.
func getRequiredEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set or is empty. Application cannot start securely.", key)
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsFloat retrieves an environment variable as a float64 or returns a fallback.
func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
