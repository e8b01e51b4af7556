package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"racebook/internal/wallet"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Solana   SolanaConfig
	Betting  BettingConfig
	App      AppConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// SolanaConfig holds ledger and wallet settings
type SolanaConfig struct {
	Network                 string
	TreasuryPrivateKey      string
	OperationsWalletAddress string
	OperationsSplitPercent  float64
}

// BettingConfig holds wager limits and reconciliation settings
type BettingConfig struct {
	MinBetSOL            decimal.Decimal
	MaxBetSOL            decimal.Decimal
	HouseEdgePercent     float64
	PollIntervalSeconds  int
	DepositExpiryMinutes int
	SignatureCacheSize   int
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret        string
	AdminPassword    string
	WalletPassphrase string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	minBet, err := decimal.NewFromString(getEnv("MIN_BET_SOL", "0.01"))
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_BET_SOL: %w", err)
	}
	maxBet, err := decimal.NewFromString(getEnv("MAX_BET_SOL", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_BET_SOL: %w", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "racebook"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Solana: SolanaConfig{
			Network:                 getEnv("SOLANA_NETWORK", "devnet"),
			TreasuryPrivateKey:      getEnv("TREASURY_PRIVATE_KEY", ""),
			OperationsWalletAddress: getEnv("OPERATIONS_WALLET_ADDRESS", ""),
			OperationsSplitPercent:  getEnvFloat("OPERATIONS_SPLIT_PERCENT", 0),
		},
		Betting: BettingConfig{
			MinBetSOL:            minBet,
			MaxBetSOL:            maxBet,
			HouseEdgePercent:     getEnvFloat("HOUSE_EDGE_PERCENT", 5),
			PollIntervalSeconds:  getEnvInt("POLL_INTERVAL_SECONDS", 5),
			DepositExpiryMinutes: getEnvInt("DEPOSIT_EXPIRY_MINUTES", 30),
			SignatureCacheSize:   getEnvInt("SIGNATURE_CACHE_SIZE", 4096),
		},
		App: AppConfig{
			JWTSecret:        getEnv("JWT_SECRET", ""),
			AdminPassword:    getEnv("ADMIN_PASSWORD", ""),
			WalletPassphrase: getEnv("WALLET_PASSPHRASE", ""),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if config.App.AdminPassword == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD is required")
	}
	if config.Betting.MinBetSOL.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("MIN_BET_SOL must be positive")
	}
	if config.Betting.MaxBetSOL.LessThan(config.Betting.MinBetSOL) {
		return nil, fmt.Errorf("MAX_BET_SOL must be >= MIN_BET_SOL")
	}
	if config.Betting.HouseEdgePercent < 0 || config.Betting.HouseEdgePercent >= 100 {
		return nil, fmt.Errorf("HOUSE_EDGE_PERCENT must be in [0, 100)")
	}
	if config.Solana.OperationsSplitPercent < 0 || config.Solana.OperationsSplitPercent > 100 {
		return nil, fmt.Errorf("OPERATIONS_SPLIT_PERCENT must be in [0, 100]")
	}
	if config.Solana.OperationsSplitPercent > 0 && config.Solana.OperationsWalletAddress == "" {
		return nil, fmt.Errorf("OPERATIONS_WALLET_ADDRESS is required when OPERATIONS_SPLIT_PERCENT is set")
	}

	// An absent passphrase degrades to plaintext key storage. That is
	// allowed, but never silently.
	if config.App.WalletPassphrase == "" {
		log.Println("WARNING: WALLET_PASSPHRASE is not set - deposit keys will be stored UNENCRYPTED")
	} else if len(config.App.WalletPassphrase) < wallet.MinPassphraseLength {
		return nil, fmt.Errorf("WALLET_PASSPHRASE must be at least %d characters", wallet.MinPassphraseLength)
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
