// Package config loads runtime configuration for the lootshop CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the lootshop server
//	-d string   path of the local state database
//	-i int      online status check interval (seconds)
//	-l string   log level
//
// # JSON schema
//
// Durations are strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "db_path": "lootshop.db",
//	  "online_check_interval": "3s",
//	  "admin_cache_ttl": "5m",
//	  "session_ttl": "24h"
//	}
package config
