package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	configDirPathEnv     = "SIGNET_CONFIG_DIR_PATH"
	defaultConfigDirPath = "."
)

// GatewaySettings are the tunable, non-secret options read from the
// environment.
type GatewaySettings struct {
	ListenAddr              string `env:"SIGNET_LISTEN_ADDR" env-default:":8000"`
	MetricsListenAddr       string `env:"SIGNET_METRICS_LISTEN_ADDR" env-default:":4242"`
	RPCURL                  string `env:"SIGNET_RPC_URL" env-default:""`
	ChainID                 uint64 `env:"SIGNET_CHAIN_ID" env-default:"1"`
	TokenDecimals           int32  `env:"SIGNET_TOKEN_DECIMALS" env-default:"6"`
	AuthSkewSeconds         int    `env:"SIGNET_AUTH_SKEW_SECONDS" env-default:"60"`
	BroadcastTimeoutSeconds int    `env:"SIGNET_BROADCAST_TIMEOUT_SECONDS" env-default:"30"`
	FeeCeilingWei           uint64 `env:"SIGNET_FEE_CEILING_WEI" env-default:"100000000000"`
	AllowedDestinations     string `env:"SIGNET_ALLOWED_DESTINATIONS" env-default:""`
	AllowedContracts        string `env:"SIGNET_ALLOWED_CONTRACTS" env-default:""`
}

// Config represents the overall application configuration
type Config struct {
	settings       GatewaySettings
	hotKeyHex      string
	masterXprv     string
	masterMnemonic string
	hmacSecret     []byte
	dbConf         DatabaseConfig
	persistStore   bool
}

// HDConfigured reports whether master key material for derived signing was
// provided.
func (c *Config) HDConfigured() bool {
	return c.masterXprv != "" || c.masterMnemonic != ""
}

// SkewWindow returns the authentication timestamp skew window.
func (c *Config) SkewWindow() time.Duration {
	return time.Duration(c.settings.AuthSkewSeconds) * time.Second
}

// BroadcastTimeout bounds the external ledger-client call.
func (c *Config) BroadcastTimeout() time.Duration {
	return time.Duration(c.settings.BroadcastTimeoutSeconds) * time.Second
}

// LoadConfig builds configuration from environment variables
func LoadConfig(logger Logger) (*Config, error) {
	logger = logger.NewSystem("config")

	configDirPath := os.Getenv(configDirPathEnv)
	if configDirPath == "" {
		configDirPath = defaultConfigDirPath
	}

	// Load .env files
	configDotEnvPath := filepath.Join(configDirPath, ".env")
	logger.Info("loading .env file", "path", configDotEnvPath)
	if err := godotenv.Load(configDotEnvPath); err != nil {
		logger.Warn(".env file not found")
	}

	var settings GatewaySettings
	if err := cleanenv.ReadEnv(&settings); err != nil {
		logger.Error("failed to read env", "err", err)
		return nil, err
	}
	if settings.AuthSkewSeconds <= 0 {
		logger.Warn("invalid SIGNET_AUTH_SKEW_SECONDS, using default", "value", settings.AuthSkewSeconds)
		settings.AuthSkewSeconds = 60
	}
	if settings.BroadcastTimeoutSeconds <= 0 {
		logger.Warn("invalid SIGNET_BROADCAST_TIMEOUT_SECONDS, using default", "value", settings.BroadcastTimeoutSeconds)
		settings.BroadcastTimeoutSeconds = 30
	}

	// Retrieve the hot signing key.
	hotKeyHex := os.Getenv("SIGNET_HOT_KEY")
	if hotKeyHex == "" {
		logger.Fatal("SIGNET_HOT_KEY environment variable is required")
	}

	hmacSecret := os.Getenv("SIGNET_HMAC_SECRET")
	if hmacSecret == "" {
		logger.Fatal("SIGNET_HMAC_SECRET environment variable is required")
	}

	// Master key material is optional; its absence disables the derived-key
	// endpoint rather than failing startup.
	masterXprv := os.Getenv("SIGNET_MASTER_XPRV")
	masterMnemonic := os.Getenv("SIGNET_MASTER_MNEMONIC")
	if masterXprv != "" && masterMnemonic != "" {
		logger.Fatal("SIGNET_MASTER_XPRV and SIGNET_MASTER_MNEMONIC are mutually exclusive")
	}

	// No database configured means the in-memory idempotency fallback:
	// acceptable only for single-instance deployments, state is lost on
	// restart.
	var dbConf DatabaseConfig
	persistStore := false
	if dbURL := os.Getenv("SIGNET_DATABASE_URL"); dbURL != "" {
		var err error
		dbConf, err = ParseConnectionString(dbURL)
		if err != nil {
			logger.Error("failed to parse connection string", "err", err)
			return nil, err
		}
		persistStore = true
	} else if os.Getenv("SIGNET_DATABASE_DRIVER") != "" {
		if err := cleanenv.ReadEnv(&dbConf); err != nil {
			logger.Error("failed to read env", "err", err)
			return nil, err
		}
		persistStore = true
	} else {
		logger.Warn("no database configured, idempotency records will not survive restarts")
	}

	config := Config{
		settings:       settings,
		hotKeyHex:      hotKeyHex,
		masterXprv:     masterXprv,
		masterMnemonic: masterMnemonic,
		hmacSecret:     []byte(hmacSecret),
		dbConf:         dbConf,
		persistStore:   persistStore,
	}

	return &config, nil
}

// NewHDSignerFromConfig builds the HD signer from whichever master material
// was configured, or returns nil when HD mode is disabled.
func NewHDSignerFromConfig(config *Config) (*HDSigner, error) {
	switch {
	case config.masterXprv != "":
		return NewHDSignerFromXprv(config.masterXprv)
	case config.masterMnemonic != "":
		return NewHDSignerFromMnemonic(config.masterMnemonic)
	default:
		return nil, nil
	}
}
