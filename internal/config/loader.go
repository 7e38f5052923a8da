package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deepshift/mineshift/internal/logging"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config captures the settings of a mineshift process.
type Config struct {
	Store       string
	SQLiteDSN   string
	Codec       string
	LogLevel    slog.Level
	LogFormat   string
	BusyTimeout time.Duration
}

// fileConfig mirrors the optional YAML file. Every field is a string so a bad
// value is reported under its environment variable name like any other.
type fileConfig struct {
	Store       string `yaml:"store"`
	SQLiteDSN   string `yaml:"sqlite_dsn"`
	Codec       string `yaml:"codec"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	BusyTimeout string `yaml:"busy_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Store:       StoreSQLite,
		SQLiteDSN:   "mineshift.db",
		Codec:       "json",
		LogLevel:    slog.LevelInfo,
		LogFormat:   "json",
		BusyTimeout: 5 * time.Second,
	}
}

// Load builds the configuration from an optional YAML file named by
// MINESHIFT_CONFIG, overlaid with MINESHIFT_* environment variables.
// Environment values win over the file. All invalid values are reported
// together.
func Load() (Config, error) {
	return LoadFile(strings.TrimSpace(os.Getenv("MINESHIFT_CONFIG")))
}

// LoadFile is Load with an explicit file path. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	values := fileConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &values); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	overlay := func(field *string, key string) {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*field = value
		}
	}
	overlay(&values.Store, "MINESHIFT_STORE")
	overlay(&values.SQLiteDSN, "MINESHIFT_SQLITE_DSN")
	overlay(&values.Codec, "MINESHIFT_CODEC")
	overlay(&values.LogLevel, "MINESHIFT_LOG_LEVEL")
	overlay(&values.LogFormat, "MINESHIFT_LOG_FORMAT")
	overlay(&values.BusyTimeout, "MINESHIFT_BUSY_TIMEOUT")

	return values.resolve()
}

func (f fileConfig) resolve() (Config, error) {
	cfg := Default()
	invalid := make([]string, 0, 2)

	if store := strings.ToLower(strings.TrimSpace(f.Store)); store != "" {
		switch store {
		case StoreSQLite, StoreMemory:
			cfg.Store = store
		default:
			invalid = append(invalid, "MINESHIFT_STORE")
		}
	}

	if dsn := strings.TrimSpace(f.SQLiteDSN); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if codec := strings.ToLower(strings.TrimSpace(f.Codec)); codec != "" {
		switch codec {
		case "json", "cbor":
			cfg.Codec = codec
		default:
			invalid = append(invalid, "MINESHIFT_CODEC")
		}
	}

	if levelValue := strings.TrimSpace(f.LogLevel); levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, "MINESHIFT_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if format := strings.ToLower(strings.TrimSpace(f.LogFormat)); format != "" {
		switch format {
		case "json", "text":
			cfg.LogFormat = format
		default:
			invalid = append(invalid, "MINESHIFT_LOG_FORMAT")
		}
	}

	if timeoutValue := strings.TrimSpace(f.BusyTimeout); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout < 0 {
			invalid = append(invalid, "MINESHIFT_BUSY_TIMEOUT")
		} else {
			cfg.BusyTimeout = timeout
		}
	}

	if len(invalid) > 0 {
		return Config{}, errors.New("invalid configuration values: " + strings.Join(invalid, ", "))
	}
	return cfg, nil
}
