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
	// EnvPrefix scopes nested settings: MATCHER_SUGGEST__BREAKER__TIMEOUT.
	EnvPrefix = "MATCHER_"

	// ConfigPathEnvVar points at a YAML file to layer over the defaults.
	ConfigPathEnvVar = "CONFIG_PATH"
)

var defaultConfigPaths = []string{"config.yaml", "/etc/matchmaker/config.yaml"}

// plainEnv keeps the short variable names the deployment scripts already use.
var plainEnv = map[string]string{
	"listen_addr":    "server.listen_addr",
	"database_url":   "database.url",
	"redis_addr":     "redis.addr",
	"redis_password": "redis.password",
	"nats_url":       "nats.url",
	"jwt_secret":     "auth.jwt_secret",
	"log_level":      "logging.level",
	"log_format":     "logging.format",
	"ollama_url":     "suggest.endpoint",
	"ollama_model":   "suggest.model",
}

var sliceKeys = []string{"server.cors_origins"}

// Load builds the configuration: defaults, then the YAML file, then env.
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	if err := splitSlices(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// envKey maps an environment variable name to a koanf path. Unknown names
// map to "" and are ignored by the provider.
func envKey(name string) string {
	lower := strings.ToLower(name)
	if path, ok := plainEnv[lower]; ok {
		return path
	}
	if !strings.HasPrefix(name, EnvPrefix) {
		return ""
	}
	rest := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	parts := strings.Split(rest, "__")
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts, ".")
}

func splitSlices(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var out []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(key, out); err != nil {
			return fmt.Errorf("config: set %s: %w", key, err)
		}
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
