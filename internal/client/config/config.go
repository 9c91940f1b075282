package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the NutriKeeper CLI.
//
// An empty RemoteAddr means the remote document store is not configured and
// every collection runs in local-only mode.
type Config struct {
	DataPath      string
	StoreQuota    int64
	RemoteAddr    string
	RemoteSecret  string
	RemoteTimeout time.Duration
	AdminEmails   []string
	LogLevel      string
}

// RemoteConfigured reports whether a remote store descriptor is present.
func (c *Config) RemoteConfigured() bool {
	return c.RemoteAddr != ""
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataPath = "nutrikeeper.db"
	c.StoreQuota = 5 << 20
	c.RemoteAddr = ""
	c.RemoteSecret = ""
	c.RemoteTimeout = 10 * time.Second
	c.AdminEmails = nil
	c.LogLevel = "info"
}

// LoadConfig constructs a Config from defaults, the JSON file, the
// environment and command-line flags, in that order. It panics on malformed
// input, the same way flag parsing does.
func LoadConfig() *Config {
	loadDotEnv(".env")
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
