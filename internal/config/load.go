package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// PathEnvVar overrides the config file location.
	PathEnvVar = "SAFERIDE_CONFIG"

	// DefaultPath is read when present and PathEnvVar is unset.
	DefaultPath = "config.yaml"

	envPrefix = "SAFERIDE_"
)

// Load builds the configuration. Environment variables use the SAFERIDE_
// prefix with a double underscore between section and key, for example
// SAFERIDE_SERVER__PORT=9090.
func Load() (*Config, error) {
	path := os.Getenv(PathEnvVar)
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	return load(path, explicit)
}

// LoadFile builds the configuration from defaults, the YAML file at path and
// the environment. A missing file is an error.
func LoadFile(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, required bool) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps SAFERIDE_MONITOR__NOTIFY_TIMEOUT to monitor.notify_timeout.
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	if s == strings.TrimPrefix(PathEnvVar, envPrefix) {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}
