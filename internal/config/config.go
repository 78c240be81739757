package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Engine   EngineConfig   `json:"engine"`
}

// ServerConfig contains server related configurations
type ServerConfig struct {
	Port int `json:"port"`
}

// DatabaseConfig contains snapshot database related configurations. When
// Enabled is false the engine runs purely in memory.
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	MaxConns int    `json:"max_conns"`
}

// EngineConfig contains the marketplace policy constants. Percentages are
// integer percent values; zero fields fall back to the policy defaults.
type EngineConfig struct {
	Treasury       string `json:"treasury"`
	MintFeeMinPct  uint64 `json:"mint_fee_min_pct"`
	MintFeeMaxPct  uint64 `json:"mint_fee_max_pct"`
	MinRaisePct    uint64 `json:"min_raise_pct"`
	BidCeilingPct  uint64 `json:"bid_ceiling_pct"`
	TransferFeePct uint64 `json:"transfer_fee_pct"`
	PayoutAmount   uint64 `json:"payout_amount"`
}

// Load loads the configuration from file and environment
func Load() (*Config, error) {
	// Default config
	cfg := &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Name:     "tulips",
			MaxConns: 25,
		},
		Engine: EngineConfig{
			Treasury: "treasury",
		},
	}

	// Look for config file
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		// Use default config file path
		configFile = filepath.Join("configs", "config.json")
	}

	// Try to load config from file
	if _, err := os.Stat(configFile); err == nil {
		file, err := os.Open(configFile)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, err
		}
	}

	// Override with environment variables if present
	if port := os.Getenv("SERVER_PORT"); port != "" {
		var serverPort int
		if _, err := fmt.Sscanf(port, "%d", &serverPort); err == nil {
			cfg.Server.Port = serverPort
		}
	}

	if dbEnabled := os.Getenv("DB_ENABLED"); dbEnabled != "" {
		cfg.Database.Enabled = dbEnabled == "true" || dbEnabled == "1"
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		var databasePort int
		if _, err := fmt.Sscanf(dbPort, "%d", &databasePort); err == nil {
			cfg.Database.Port = databasePort
		}
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("DB_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.Database.Name = dbName
	}
	if dbMaxConns := os.Getenv("DB_MAX_CONNS"); dbMaxConns != "" {
		var maxConns int
		if _, err := fmt.Sscanf(dbMaxConns, "%d", &maxConns); err == nil {
			cfg.Database.MaxConns = maxConns
		}
	}

	if treasury := os.Getenv("ENGINE_TREASURY"); treasury != "" {
		cfg.Engine.Treasury = treasury
	}
	for env, dst := range map[string]*uint64{
		"ENGINE_MINT_FEE_MIN_PCT": &cfg.Engine.MintFeeMinPct,
		"ENGINE_MINT_FEE_MAX_PCT": &cfg.Engine.MintFeeMaxPct,
		"ENGINE_MIN_RAISE_PCT":    &cfg.Engine.MinRaisePct,
		"ENGINE_BID_CEILING_PCT":  &cfg.Engine.BidCeilingPct,
		"ENGINE_TRANSFER_FEE_PCT": &cfg.Engine.TransferFeePct,
		"ENGINE_PAYOUT_AMOUNT":    &cfg.Engine.PayoutAmount,
	} {
		if v := os.Getenv(env); v != "" {
			var parsed uint64
			if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil {
				*dst = parsed
			}
		}
	}

	return cfg, nil
}
