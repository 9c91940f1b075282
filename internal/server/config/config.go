// Package config handles configuration for the remote document store,
// including defaults, JSON overlay, environment and command-line flags.
package config

import "os"

// Config holds runtime settings for the NutriKeeper document store.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the public gRPC endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps documents in memory.
//   - RedisAddr: Redis address for cross-replica change fan-out. Empty
//     keeps notifications in process.
//   - MetricsAddr: bind address of the Prometheus HTTP endpoint. Empty
//     disables it.
//   - SecretKey: HMAC secret shared with clients for signing JWTs (HS256).
//     Do not use the default in prod.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	EndpointAddrGRPC string
	DatabaseDSN      string
	RedisAddr        string
	MetricsAddr      string
	SecretKey        string
	LogLevel         string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret is insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.RedisAddr = ""
	c.MetricsAddr = ":9090"
	c.SecretKey = "secretKey"
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line
// flags.
func LoadConfig() *Config {
	return load(os.Args[1:], os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg, lookup)
	parseFlags(cfg, args)
	return cfg
}
