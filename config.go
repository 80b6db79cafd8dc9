package gqlpg

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// PipelineConfig bootstraps a resolver/gqlsurface deployment, per
// spec.md §6's "environment variables (subset): database URL, pool
// size, port, introspection on/off, JWT secret, startup connection
// check". Every field can be set from the environment or from a YAML
// file (the latter following the teacher's gqlgen.yml-style config
// loading, swapped to our own shape).
type PipelineConfig struct {
	DatabaseURL          string `yaml:"database_url"`
	Port                 int    `yaml:"port"`
	MaxOpenConns         int    `yaml:"max_open_conns"`
	IntrospectionEnabled bool   `yaml:"introspection_enabled"`
	JWTSecret            string `yaml:"jwt_secret"`
}

// DefaultConfig returns the configuration's zero-value defaults before
// any environment or file overrides are applied.
func DefaultConfig() PipelineConfig {
	return PipelineConfig{
		Port:                 8080,
		MaxOpenConns:         10,
		IntrospectionEnabled: true,
	}
}

// LoadConfigFromEnv reads PipelineConfig fields from well-known
// environment variables, starting from DefaultConfig for anything
// unset.
func LoadConfigFromEnv() (PipelineConfig, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("GQLPG_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("GQLPG_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return PipelineConfig{}, fmt.Errorf("gqlpg: invalid GQLPG_PORT %q: %w", v, err)
		}
		cfg.Port = n
	}
	if v := os.Getenv("GQLPG_MAX_OPEN_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return PipelineConfig{}, fmt.Errorf("gqlpg: invalid GQLPG_MAX_OPEN_CONNS %q: %w", v, err)
		}
		cfg.MaxOpenConns = n
	}
	if v := os.Getenv("GQLPG_INTROSPECTION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return PipelineConfig{}, fmt.Errorf("gqlpg: invalid GQLPG_INTROSPECTION %q: %w", v, err)
		}
		cfg.IntrospectionEnabled = b
	}
	if v := os.Getenv("GQLPG_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}

	if cfg.DatabaseURL == "" {
		return PipelineConfig{}, fmt.Errorf("gqlpg: GQLPG_DATABASE_URL is required")
	}
	return cfg, nil
}

// LoadConfigFromFile reads a YAML config file, starting from
// DefaultConfig for anything the file omits.
func LoadConfigFromFile(path string) (PipelineConfig, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("gqlpg: reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return PipelineConfig{}, fmt.Errorf("gqlpg: parsing config %s: %w", path, err)
	}
	if cfg.DatabaseURL == "" {
		return PipelineConfig{}, fmt.Errorf("gqlpg: %s: database_url is required", path)
	}
	return cfg, nil
}
