// Package config loads server configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Server is the marketd configuration.
type Server struct {
	// ListenAddress is the host:port the HTTP API binds to.
	ListenAddress string `yaml:"listen_address"`

	// ReportTolerance is the report staleness tolerance in milliseconds.
	ReportTolerance uint64 `yaml:"report_tolerance"`

	// AcceptedAssets lists the reward assets the marketplace accepts.
	AcceptedAssets []string `yaml:"accepted_assets"`

	Database Database `yaml:"database"`
}

// Database holds the postgres connection parameters.
type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// Load reads the configuration file at path, falling back to defaults
// when path is empty or the file does not exist, then applies
// environment overrides.
func Load(path string) (*Server, error) {
	cfg := &Server{
		ListenAddress:  ":8080",
		AcceptedAssets: []string{"native"},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ListenAddress = GetEnv("LISTEN_ADDRESS", cfg.ListenAddress)
	cfg.Database.Host = GetEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.User = GetEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = GetEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = GetEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = GetEnv("DB_SSL_MODE", cfg.Database.SSLMode)
	if port := GetEnv("DB_PORT", ""); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT %q: %w", port, err)
		}
		cfg.Database.Port = p
	}
	if tolerance := GetEnv("REPORT_TOLERANCE_MS", ""); tolerance != "" {
		t, err := strconv.ParseUint(tolerance, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid REPORT_TOLERANCE_MS %q: %w", tolerance, err)
		}
		cfg.ReportTolerance = t
	}

	return cfg, nil
}

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
