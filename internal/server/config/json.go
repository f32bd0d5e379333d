package config

import (
	"encoding/json"
	"os"

	"github.com/weightlog/weightlog/internal/flagx"
	"github.com/weightlog/weightlog/internal/timex"
)

// JsonConfig is the on-disk shape of the optional config file. Interval
// fields use timex.Duration so both "24h" and integer nanoseconds work.
// Absent fields leave the current value untouched.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseHost                string         `json:"database_host"`
	DatabasePort                int            `json:"database_port"`
	DatabaseName                string         `json:"database_name"`
	KeysDir                     string         `json:"keys_dir"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	CORSOrigins                 []string       `json:"cors_origins"`
	TrustedProxies              []string       `json:"trusted_proxies"`
	LoginRateLimit              float64        `json:"login_rate_limit"`
	LoginRateBurst              int            `json:"login_rate_burst"`
	LogLevel                    string         `json:"log_level"`
	JSONLogs                    *bool          `json:"json_logs"`
}

// parseJson loads the file named by -c/-config, if any. Unreadable or
// invalid files panic, as a broken config must stop startup.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseHost, c.DatabaseHost)
	setString(&config.DatabaseName, c.DatabaseName)
	setString(&config.KeysDir, c.KeysDir)
	setString(&config.LogLevel, c.LogLevel)

	if c.DatabasePort != 0 {
		config.DatabasePort = c.DatabasePort
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	if len(c.TrustedProxies) > 0 {
		config.TrustedProxies = c.TrustedProxies
	}
	if c.LoginRateLimit != 0 {
		config.LoginRateLimit = c.LoginRateLimit
	}
	if c.LoginRateBurst != 0 {
		config.LoginRateBurst = c.LoginRateBurst
	}
	if c.JSONLogs != nil {
		config.JSONLogs = *c.JSONLogs
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
