package app

import (
	"log"
	"os"
	"strings"
)

type AppConfig struct {
	// =========================== REQUIRED ===========================

	// Database configuration (required)
	DSN *string
	// Redis configuration (required)
	RedisAddr *string
	// API secret for validating requests from the console gateway (required)
	APISecret *string

	// =========================== OPTIONAL ===========================

	// Logging configuration
	LogLevel *string

	// HTTP server configuration
	Port *string
	Host *string

	// Environment name, "dev" loosens CORS defaults
	Environment *string

	// CORS configuration
	AllowOrigins *[]string

	// Migration configuration
	MigrationPath *string

	// Blockchain RPC URLs (all have defaults)
	EthereumRPCURL        *string
	OptimismRPCURL        *string
	BaseRPCURL            *string
	SepoliaRPCURL         *string
	OptimismSepoliaRPCURL *string
}

func NewAppConfig() *AppConfig {
	config := &AppConfig{}

	// Load required configuration
	loadRequiredConfig(config)

	// Load optional configuration with defaults
	loadOptionalConfig(config)

	return config
}

// loadRequiredConfig loads all required configuration values and fails fast if any are missing
func loadRequiredConfig(config *AppConfig) {
	// Database URL (required)
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatalf("REQUIRED: DB_URL not set in environment")
	}
	config.DSN = &dsn

	// Redis URL (required)
	redisAddr := os.Getenv("REDIS_URL")
	if redisAddr == "" {
		log.Fatalf("REQUIRED: REDIS_URL not set in environment")
	}
	config.RedisAddr = &redisAddr

	// API secret for validating requests from the console gateway (required)
	apiSecret := os.Getenv("API_SECRET")
	if apiSecret == "" {
		log.Fatalf("REQUIRED: API_SECRET not set in environment")
	}
	config.APISecret = &apiSecret

	// CORS origins (required in production, optional in development)
	loadCORSConfig(config)
}

// loadOptionalConfig loads all optional configuration values with sensible defaults
func loadOptionalConfig(config *AppConfig) {
	// HTTP server port (default: 8080)
	port := getEnvWithDefault("PORT", "8080")
	config.Port = &port

	host := getEnvWithDefault("HOST", "localhost:"+port)
	config.Host = &host

	// Log level (default: debug)
	// Available levels: "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"
	logLevel := getEnvWithDefault("LOG_LEVEL", "debug")
	config.LogLevel = &logLevel

	// Migration path (default: file://migrations)
	migrationPath := getEnvWithDefault("MIGRATION_PATH", "file://migrations")
	config.MigrationPath = &migrationPath

	// Load blockchain RPC URLs with defaults
	loadRPCConfig(config)
}

// loadCORSConfig handles CORS origins configuration with environment-specific behavior
func loadCORSConfig(config *AppConfig) {
	environment := getEnvWithDefault("ENVIRONMENT", "dev")
	config.Environment = &environment

	allowOriginsStr := os.Getenv("ALLOW_ORIGINS")
	var allowOrigins []string

	if allowOriginsStr != "" {
		// Parse comma-separated origins
		origins := strings.Split(allowOriginsStr, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowOrigins = append(allowOrigins, origin)
			}
		}
	} else {
		// Handle missing ALLOW_ORIGINS based on environment
		if environment == "development" || environment == "dev" {
			// Default to localhost in development
			allowOrigins = []string{"http://localhost:5173"}
		} else {
			log.Fatalf("REQUIRED: ALLOW_ORIGINS not set in environment (required in production)")
		}
	}

	config.AllowOrigins = &allowOrigins
}

// loadRPCConfig loads blockchain RPC URLs with public node defaults
func loadRPCConfig(config *AppConfig) {
	ethereumRPCURL := getEnvWithDefault("ETHEREUM_RPC_URL", "https://ethereum-rpc.publicnode.com")
	config.EthereumRPCURL = &ethereumRPCURL

	optimismRPCURL := getEnvWithDefault("OPTIMISM_RPC_URL", "https://optimism-rpc.publicnode.com")
	config.OptimismRPCURL = &optimismRPCURL

	baseRPCURL := getEnvWithDefault("BASE_RPC_URL", "https://base-rpc.publicnode.com")
	config.BaseRPCURL = &baseRPCURL

	sepoliaRPCURL := getEnvWithDefault("SEPOLIA_RPC_URL", "https://ethereum-sepolia-rpc.publicnode.com")
	config.SepoliaRPCURL = &sepoliaRPCURL

	optimismSepoliaRPCURL := getEnvWithDefault("OPTIMISM_SEPOLIA_RPC_URL", "https://optimism-sepolia-rpc.publicnode.com")
	config.OptimismSepoliaRPCURL = &optimismSepoliaRPCURL
}

// getEnvWithDefault returns environment variable value or default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
