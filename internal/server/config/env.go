package config

import (
	"errors"
	"fmt"

	"github.com/joeshaw/envdecode"
)

// envConfig lists the environment variables the backend honours. Lists are
// separated by semicolons (CORS_ORIGINS="https://a;https://b"). Unset
// variables keep the value already present in the struct.
type envConfig struct {
	DatabaseHost string   `env:"DB_HOST"`
	DatabasePort int      `env:"DB_PORT"`
	DatabaseName string   `env:"DB_NAME"`
	KeysDir      string   `env:"KEYS_DIR"`
	CORSOrigins  []string `env:"CORS_ORIGINS"`
	Proxies      []string `env:"TRUSTED_PROXIES"`
	LogLevel     string   `env:"LOG_LEVEL"`
	JSONLogs     bool     `env:"JSON_LOGS"`
}

func parseEnv(config *Config) error {
	e := envConfig{
		DatabaseHost: config.DatabaseHost,
		DatabasePort: config.DatabasePort,
		DatabaseName: config.DatabaseName,
		KeysDir:      config.KeysDir,
		CORSOrigins:  config.CORSOrigins,
		Proxies:      config.TrustedProxies,
		LogLevel:     config.LogLevel,
		JSONLogs:     config.JSONLogs,
	}

	if err := envdecode.Decode(&e); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("environment: %w", err)
	}

	config.DatabaseHost = e.DatabaseHost
	config.DatabasePort = e.DatabasePort
	config.DatabaseName = e.DatabaseName
	config.KeysDir = e.KeysDir
	config.CORSOrigins = e.CORSOrigins
	config.TrustedProxies = e.Proxies
	config.LogLevel = e.LogLevel
	config.JSONLogs = e.JSONLogs
	return nil
}
