package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Database selects one of the two supported storage engines.
type Database struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`    // postgres connection string
	Path   string `yaml:"path"`   // sqlite file path
}

// Filtering mirrors the [FILTERING] section of the legacy reader config:
// identities and door labels that must never produce attendance data.
type Filtering struct {
	ExcludeEmployees []string `yaml:"exclude_employees"`
	ExcludeDoors     []string `yaml:"exclude_doors"`
}

type Server struct {
	Addr            string `yaml:"addr"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
	SessionTTLHours int    `yaml:"session_ttl_hours"`
}

type Config struct {
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	Filtering Filtering `yaml:"filtering"`
}

func defaults() Config {
	return Config{
		Server: Server{
			Addr:            "0.0.0.0:8090",
			MaxUploadBytes:  100 << 20,
			SessionTTLHours: 24,
		},
		Database: Database{
			Driver: "sqlite",
			Path:   "gatelog.db",
		},
	}
}

// Load reads the YAML config file (if present) and applies environment
// overrides. A missing file is not an error; the defaults cover local use.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if v := os.Getenv("GATELOG_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("GATELOG_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("GATELOG_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("GATELOG_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("GATELOG_EXCLUDE_EMPLOYEES"); v != "" {
		cfg.Filtering.ExcludeEmployees = splitList(v)
	}
	if v := os.Getenv("GATELOG_EXCLUDE_DOORS"); v != "" {
		cfg.Filtering.ExcludeDoors = splitList(v)
	}

	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
