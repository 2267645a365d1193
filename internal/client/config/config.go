package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/common"
)

// Config holds runtime settings for the lootshop CLI.
type Config struct {
	ServerURL           string
	DBPath              string
	LogLevel            string
	OnlineCheckInterval time.Duration
	// AdminCacheTTL bounds how long a fetched admin status is reused.
	AdminCacheTTL time.Duration
	// SessionTTL is the lifetime of the locally held session descriptor.
	SessionTTL time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DBPath = "lootshop.db"
	c.LogLevel = "warn"
	c.OnlineCheckInterval = 3 * time.Second
	c.AdminCacheTTL = common.AdminCacheValidity
	c.SessionTTL = common.SessionValidity
}

// LoadConfig constructs a Config from defaults, the JSON file and flags of
// the current process. Later sources take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server url is empty")
	}
	return cfg, nil
}
