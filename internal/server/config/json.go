package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/nutrikeeper/internal/flagx"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. Absent keys leave the current values untouched.
type JsonConfig struct {
	EndpointAddrGRPC *string `json:"endpoint_addr_grpc"`
	DatabaseDSN      *string `json:"database_dsn"`
	RedisAddr        *string `json:"redis_addr"`
	MetricsAddr      *string `json:"metrics_addr"`
	SecretKey        *string `json:"secret_key"`
	LogLevel         *string `json:"log_level"`
}

// parseJson loads configuration values from the file named by -c/-config.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFile(args)

	// nothing to load
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

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.RedisAddr, c.RedisAddr)
	set(&config.MetricsAddr, c.MetricsAddr)
	set(&config.SecretKey, c.SecretKey)
	set(&config.LogLevel, c.LogLevel)
}
