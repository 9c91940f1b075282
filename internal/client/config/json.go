package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/nutrikeeper/internal/flagx"
	"github.com/dmitrijs2005/nutrikeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from "empty" so a partial file only overrides
// what it mentions.
type JsonConfig struct {
	DataPath      *string         `json:"data_path"`
	StoreQuota    *int64          `json:"store_quota"`
	RemoteAddr    *string         `json:"remote_addr"`
	RemoteSecret  *string         `json:"remote_secret"`
	RemoteTimeout *timex.Duration `json:"remote_timeout"`
	AdminEmails   []string        `json:"admin_emails"`
	LogLevel      *string         `json:"log_level"`
}

// parseJson overlays cfg with the file named by -c/-config, if any.
// Read and decode errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DataPath != nil {
		cfg.DataPath = *jc.DataPath
	}
	if jc.StoreQuota != nil {
		cfg.StoreQuota = *jc.StoreQuota
	}
	if jc.RemoteAddr != nil {
		cfg.RemoteAddr = *jc.RemoteAddr
	}
	if jc.RemoteSecret != nil {
		cfg.RemoteSecret = *jc.RemoteSecret
	}
	if jc.RemoteTimeout != nil {
		cfg.RemoteTimeout = jc.RemoteTimeout.Duration
	}
	if jc.AdminEmails != nil {
		cfg.AdminEmails = jc.AdminEmails
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
}
