package spreadsheet

import (
	"encoding/json"
	"os"
	"strconv"
)

// AutosaveConfig configures the autosave batcher; the core itself
// consumes these settings only through that downstream consumer
// (autosave.Batcher), never directly.
type AutosaveConfig struct {
	Enabled    bool `json:"enabled"`
	IntervalMs int  `json:"interval_ms"`
	BatchSize  int  `json:"batch_size"`
}

// Config is the process-level configuration: a JSON file read with
// os.ReadFile and decoded with json.Unmarshal, no configuration library.
type Config struct {
	DatabaseDSN string         `json:"database_dsn"`
	ListenAddr  string         `json:"listen_addr"`
	ZMQPubAddr  string         `json:"zmq_pub_addr"`
	Autosave    AutosaveConfig `json:"autosave"`
}

// DefaultConfig matches an empty-DSN, in-memory, autosave-disabled setup.
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8080",
		Autosave: AutosaveConfig{
			Enabled:    false,
			IntervalMs: 5000,
			BatchSize:  100,
		},
	}
}

// LoadConfig reads path (if non-empty) into a Config seeded with
// DefaultConfig, then applies SHEETCORE_-prefixed environment overrides.
// A missing path is not an error: callers without a config file get
// defaults plus whatever the environment sets.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, newError(ErrParse, "read config %s: %v", path, err)
			}
		} else if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, newError(ErrParse, "parse config %s: %v", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SHEETCORE_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("SHEETCORE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("SHEETCORE_ZMQ_PUB_ADDR"); v != "" {
		cfg.ZMQPubAddr = v
	}
	if v := os.Getenv("SHEETCORE_AUTOSAVE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Autosave.Enabled = b
		}
	}
	if v := os.Getenv("SHEETCORE_AUTOSAVE_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Autosave.IntervalMs = n
		}
	}
	if v := os.Getenv("SHEETCORE_AUTOSAVE_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Autosave.BatchSize = n
		}
	}
}
