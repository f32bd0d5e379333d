// Package config handles configuration for the backend server: defaults,
// an optional JSON file, environment variables and command-line flags,
// applied in that order. Secrets are not part of Config; they come from
// the key files (see package keys).
package config

import "time"

// DefaultDatabaseName is the application database unless DB_NAME says
// otherwise.
const DefaultDatabaseName = "weight_log"

// Config holds runtime settings for the Weight Log backend.
type Config struct {
	EndpointAddrHTTP            string
	EndpointAddrGRPC            string
	DatabaseHost                string
	DatabasePort                int
	DatabaseName                string
	KeysDir                     string
	AccessTokenValidityDuration time.Duration
	CORSOrigins                 []string
	TrustedProxies              []string
	LoginRateLimit              float64
	LoginRateBurst              int
	LogLevel                    string
	JSONLogs                    bool
}

// DatabaseUser is the dedicated application role created for DatabaseName.
func (c *Config) DatabaseUser() string {
	return c.DatabaseName + "_user"
}

// LoadDefaults populates Config with the values used by the container
// deployment.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8000"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseHost = "db"
	c.DatabasePort = 5432
	c.DatabaseName = DefaultDatabaseName
	c.KeysDir = "/keys"
	c.AccessTokenValidityDuration = 24 * time.Hour
	c.CORSOrigins = []string{"*"}
	c.TrustedProxies = []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	c.LoginRateLimit = 5
	c.LoginRateBurst = 10
	c.LogLevel = "debug"
	c.JSONLogs = true
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	parseFlags(cfg, args)
	return cfg, nil
}
