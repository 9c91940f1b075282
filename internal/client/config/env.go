package config

import (
	"errors"
	"io/fs"
	"strconv"
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/flagx"
	"github.com/joho/godotenv"
)

const (
	envDataPath      = "NUTRIKEEPER_DATA_PATH"
	envStoreQuota    = "NUTRIKEEPER_STORE_QUOTA"
	envRemoteAddr    = "NUTRIKEEPER_REMOTE_ADDR"
	envRemoteSecret  = "NUTRIKEEPER_REMOTE_SECRET"
	envRemoteTimeout = "NUTRIKEEPER_REMOTE_TIMEOUT"
	envAdminEmails   = "NUTRIKEEPER_ADMIN_EMAILS"
	envLogLevel      = "NUTRIKEEPER_LOG_LEVEL"
)

// loadDotEnv copies variables from path into the process environment
// without overriding ones that are already set. A missing file is fine.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
}

// parseEnv overlays cfg with NUTRIKEEPER_* variables found by lookup.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(envDataPath); ok {
		cfg.DataPath = v
	}
	if v, ok := lookup(envStoreQuota); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		cfg.StoreQuota = n
	}
	if v, ok := lookup(envRemoteAddr); ok {
		cfg.RemoteAddr = v
	}
	if v, ok := lookup(envRemoteSecret); ok {
		cfg.RemoteSecret = v
	}
	if v, ok := lookup(envRemoteTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		cfg.RemoteTimeout = d
	}
	if v, ok := lookup(envAdminEmails); ok {
		cfg.AdminEmails = flagx.SplitList(v)
	}
	if v, ok := lookup(envLogLevel); ok {
		cfg.LogLevel = v
	}
}
