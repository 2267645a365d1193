package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays LOOTSHOP_* variables onto cfg. Unset variables keep the
// current value.
func parseEnv(cfg *Config, environ map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
