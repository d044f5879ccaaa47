package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Environment names
const (
	EnvProduction  = "production"
	EnvStaging     = "staging"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

// Config is the root service configuration, loaded from the environment
type Config struct {
	Environment string

	API      APIConfig
	Chain    ChainConfig
	Keystore KeystoreConfig
	Offchain OffchainConfig
}

// APIConfig holds HTTP server configuration
type APIConfig struct {
	ListenAddr string
	BasePath   string // e.g. "/api"

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	MaxRequestSize    int64
	MaxConcurrentReqs int

	RateLimitEnabled   bool
	RateLimitPerMinute int
	RateLimitBurst     int

	CORSAllowedOrigin string
}

// ChainConfig holds chain RPC and contract configuration
type ChainConfig struct {
	ProviderURL     string
	BundlerURL      string
	ChainID         int64
	ContractAddress common.Address
	EntryPoint      common.Address

	// Paymaster sponsorship policy applied to submitted user operations
	PaymasterPolicyID string

	ReadTimeout time.Duration
}

// KeystoreConfig holds signing-key store configuration
type KeystoreConfig struct {
	// DSN of the provisioning database. Empty selects the in-memory store
	// (development and tests only).
	DSN          string
	ConnTimeout  time.Duration
	MaxOpenConns int
	MaxIdleConns int
}

// OffchainConfig holds the DHT-backed swarm API configuration
type OffchainConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Load reads configuration from the environment and applies defaults
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", EnvDevelopment),
		API: APIConfig{
			ListenAddr:         getEnv("API_LISTEN_ADDR", ":8080"),
			BasePath:           strings.TrimSuffix(getEnv("API_BASE_PATH", "/api"), "/"),
			ReadTimeout:        getDuration("API_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:       getDuration("API_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:        getDuration("API_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:    getDuration("API_SHUTDOWN_TIMEOUT", 15*time.Second),
			RequestTimeout:     getDuration("API_REQUEST_TIMEOUT", 30*time.Second),
			MaxRequestSize:     getInt64("API_MAX_REQUEST_SIZE", 1<<20),
			MaxConcurrentReqs:  getInt("API_MAX_CONCURRENT_REQS", 256),
			RateLimitEnabled:   getBool("API_RATE_LIMIT_ENABLED", true),
			RateLimitPerMinute: getInt("API_RATE_LIMIT_PER_MINUTE", 300),
			RateLimitBurst:     getInt("API_RATE_LIMIT_BURST", 50),
			CORSAllowedOrigin:  getEnv("API_CORS_ALLOWED_ORIGIN", "*"),
		},
		Chain: ChainConfig{
			ProviderURL:       os.Getenv("PROVIDER_URL"),
			BundlerURL:        os.Getenv("BUNDLER_URL"),
			ChainID:           getInt64("CHAIN_ID", 31337),
			PaymasterPolicyID: os.Getenv("PAYMASTER_POLICY_ID"),
			ReadTimeout:       getDuration("CHAIN_READ_TIMEOUT", 10*time.Second),
		},
		Keystore: KeystoreConfig{
			DSN:          os.Getenv("KEYSTORE_DSN"),
			ConnTimeout:  getDuration("KEYSTORE_CONN_TIMEOUT", 5*time.Second),
			MaxOpenConns: getInt("KEYSTORE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getInt("KEYSTORE_MAX_IDLE_CONNS", 5),
		},
		Offchain: OffchainConfig{
			BaseURL:        getEnv("SWARM_API_URL", "http://localhost:8000"),
			RequestTimeout: getDuration("SWARM_API_TIMEOUT", 15*time.Second),
		},
	}

	if addr := os.Getenv("SMART_CONTRACT_ADDRESS"); addr != "" {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("config: SMART_CONTRACT_ADDRESS is not a valid address: %q", addr)
		}
		cfg.Chain.ContractAddress = common.HexToAddress(addr)
	}
	if addr := os.Getenv("ENTRYPOINT_ADDRESS"); addr != "" {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("config: ENTRYPOINT_ADDRESS is not a valid address: %q", addr)
		}
		cfg.Chain.EntryPoint = common.HexToAddress(addr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration consistency before startup
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvProduction, EnvStaging, EnvDevelopment, EnvTest:
	default:
		return fmt.Errorf("config: unknown environment %q", c.Environment)
	}

	if c.API.ListenAddr == "" {
		return fmt.Errorf("config: API_LISTEN_ADDR is required")
	}
	if c.API.BasePath != "" && !strings.HasPrefix(c.API.BasePath, "/") {
		return fmt.Errorf("config: API_BASE_PATH must start with '/'")
	}
	if c.API.MaxRequestSize <= 0 {
		return fmt.Errorf("config: API_MAX_REQUEST_SIZE must be positive")
	}

	if c.Chain.ProviderURL == "" {
		return fmt.Errorf("config: PROVIDER_URL is required")
	}
	if err := validateURL(c.Chain.ProviderURL); err != nil {
		return fmt.Errorf("config: PROVIDER_URL invalid: %w", err)
	}
	if c.Chain.BundlerURL == "" {
		// Writes go through the provider when no dedicated bundler is set
		c.Chain.BundlerURL = c.Chain.ProviderURL
	}
	if err := validateURL(c.Chain.BundlerURL); err != nil {
		return fmt.Errorf("config: BUNDLER_URL invalid: %w", err)
	}
	if c.Chain.ContractAddress == (common.Address{}) {
		return fmt.Errorf("config: SMART_CONTRACT_ADDRESS is required")
	}

	if err := validateURL(c.Offchain.BaseURL); err != nil {
		return fmt.Errorf("config: SWARM_API_URL invalid: %w", err)
	}

	if c.Environment == EnvProduction && c.Keystore.DSN == "" {
		return fmt.Errorf("config: KEYSTORE_DSN is required in production")
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// Environment helpers

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
