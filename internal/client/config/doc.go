// Package config loads runtime configuration for the NutriKeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment: variables from an optional .env file (joho/godotenv,
//     never overriding the real environment), then the process environment.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-d string   path of the local SQLite store (":memory:" for an ephemeral one)
//	-a string   address:port of the remote document store ("" = local-only mode)
//	-k string   shared secret used to sign remote store tokens
//	-t int      remote call timeout (seconds)
//	-q int      local store quota (bytes, 0 = unlimited)
//	-l string   log level (debug|info|warn|error)
//
// Environment
//
//	NUTRIKEEPER_DATA_PATH, NUTRIKEEPER_REMOTE_ADDR, NUTRIKEEPER_REMOTE_SECRET,
//	NUTRIKEEPER_REMOTE_TIMEOUT ("10s"), NUTRIKEEPER_STORE_QUOTA,
//	NUTRIKEEPER_ADMIN_EMAILS (comma separated), NUTRIKEEPER_LOG_LEVEL
//
// # JSON schema
//
//	{
//	  "data_path": "nutrikeeper.db",
//	  "remote_addr": "127.0.0.1:50051",
//	  "remote_secret": "...",
//	  "remote_timeout": "10s",
//	  "store_quota": 5242880,
//	  "admin_emails": ["admin@example.com"],
//	  "log_level": "info"
//	}
package config
