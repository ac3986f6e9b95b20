// Package config provides configuration management for the wallet finder
// backend. It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/wallet-finder/internal/types"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Chains   ChainsConfig
	Cache    CacheConfig
	Admin    AdminConfig
	Scanner  ScannerConfig
	Logging  LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// ChainsConfig holds per-chain RPC endpoint configuration
type ChainsConfig struct {
	Chains map[types.ChainID]ChainConfig
}

// ChainConfig holds configuration for a specific chain
type ChainConfig struct {
	RPCPrimary   string
	RPCSecondary string
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// AdminConfig holds the admin authorization credential. Token has no
// default: the shared secret must be supplied through the environment.
type AdminConfig struct {
	Token string
}

// ScannerConfig holds scan loop configuration
type ScannerConfig struct {
	MaxSpeed       int // hard cap on scans per second regardless of plan
	HistoryEnabled bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Default public RPC endpoints, overridable per chain via <CHAIN>_RPC_PRIMARY
var defaultRPC = map[types.ChainID]string{
	types.ChainETH:   "https://eth.llamarpc.com",
	types.ChainBNB:   "https://bsc-dataseed.binance.org",
	types.ChainMATIC: "https://polygon-rpc.com",
	types.ChainAVAX:  "https://api.avax.network/ext/bc/C/rpc",
	types.ChainSOL:   "https://api.mainnet-beta.solana.com",
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "wallet_finder"),
				User:           getEnv("POSTGRES_USER", "finder"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "wallet_finder"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
			},
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		},
		Admin: AdminConfig{
			Token: os.Getenv("ADMIN_TOKEN"),
		},
		Scanner: ScannerConfig{
			MaxSpeed:       getEnvAsInt("SCANNER_MAX_SPEED", 1000),
			HistoryEnabled: getEnvAsBool("SCANNER_HISTORY_ENABLED", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if config.Admin.Token == "" {
		return nil, fmt.Errorf("ADMIN_TOKEN must be set")
	}

	config.Chains = loadChainConfigs()

	return config, nil
}

// loadChainConfigs loads chain-specific RPC configuration, falling back to
// the public endpoints when no override is set
func loadChainConfigs() ChainsConfig {
	chains := make(map[types.ChainID]ChainConfig, len(types.AllChains))
	for _, chain := range types.AllChains {
		prefix := map[types.ChainID]string{
			types.ChainETH:   "ETH",
			types.ChainBNB:   "BNB",
			types.ChainMATIC: "MATIC",
			types.ChainAVAX:  "AVAX",
			types.ChainSOL:   "SOL",
		}[chain]

		chains[chain] = ChainConfig{
			RPCPrimary:   getEnv(prefix+"_RPC_PRIMARY", defaultRPC[chain]),
			RPCSecondary: getEnv(prefix+"_RPC_SECONDARY", ""),
		}
	}

	return ChainsConfig{Chains: chains}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
