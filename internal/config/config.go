package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	Chain     ChainConfig
	IPFS      IPFSConfig
	Database  DatabaseConfig
	Indexer   IndexerConfig
}

// ChainConfig holds wallet and contract configuration
type ChainConfig struct {
	// ExpectedChainID is the chain the session must be bound to
	ExpectedChainID int64
	// RPCURL is the endpoint of the expected chain
	RPCURL string
	// KeystoreDir holds the geth-format key files used for signing
	KeystoreDir string
	// Passphrase unlocks keystore accounts. Empty means unlock is declined.
	Passphrase string
	// ContractFile is the address+ABI file written by the deploy tool
	ContractFile string
}

// IPFSConfig holds IPFS daemon endpoints
type IPFSConfig struct {
	APIURL     string
	GatewayURL string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// IndexerConfig holds chain indexer configuration
type IndexerConfig struct {
	Enabled      bool
	PollInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	chainID, err := strconv.ParseInt(getEnv("CHAIN_ID", "31337"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAIN_ID: %w", err)
	}

	pollSeconds, err := strconv.Atoi(getEnv("INDEXER_POLL_SECONDS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid INDEXER_POLL_SECONDS: %w", err)
	}

	return &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "5000"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		Chain: ChainConfig{
			ExpectedChainID: chainID,
			RPCURL:          getEnv("CHAIN_RPC_URL", "http://127.0.0.1:8545"),
			KeystoreDir:     getEnv("KEYSTORE_DIR", "./keystore"),
			Passphrase:      os.Getenv("KEYSTORE_PASSPHRASE"),
			ContractFile:    getEnv("CONTRACT_FILE", "./config/contract.json"),
		},
		IPFS: IPFSConfig{
			APIURL:     getEnv("IPFS_API_URL", "http://127.0.0.1:5001"),
			GatewayURL: getEnv("IPFS_GATEWAY_URL", "http://127.0.0.1:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "winetrace"),
		},
		Indexer: IndexerConfig{
			Enabled:      getEnv("INDEXER_ENABLED", "true") == "true",
			PollInterval: time.Duration(pollSeconds) * time.Second,
		},
	}, nil
}

// RequireJWT validates that JWT_SECRET is present (API binary only)
func (c *Config) RequireJWT() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
