package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// ConfigPathEnvVar names a config file explicitly.
	ConfigPathEnvVar = "FUNDFLOW_CONFIG"

	// EnvPrefix marks environment overrides, e.g. FUNDFLOW_CACHE_FILE.
	EnvPrefix = "FUNDFLOW_"
)

// DefaultConfigPaths are searched in order when FUNDFLOW_CONFIG is unset.
var DefaultConfigPaths = []string{
	"fundflow.yaml",
	"config.yaml",
}

// Load builds the configuration with precedence env > file > defaults.
// An empty path searches FUNDFLOW_CONFIG and DefaultConfigPaths.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
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

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sections lists the top-level keys. The first underscore after a section
// name separates it from the field, so FUNDFLOW_ARIMA_MAX_PARAMS maps to
// arima.max_params and FUNDFLOW_ARIMA_P_TO to arima.p.to.
var sections = []string{"data", "arima", "gate", "cache", "output", "logging"}

var nestedRanges = map[string]bool{"p": true, "d": true, "q": true}

func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	for _, section := range sections {
		rest, ok := strings.CutPrefix(key, section+"_")
		if !ok {
			continue
		}
		if section == "arima" {
			if head, field, ok := strings.Cut(rest, "_"); ok && nestedRanges[head] && (field == "from" || field == "to") {
				return section + "." + head + "." + field
			}
		}
		return section + "." + rest
	}
	return key
}
