package di

import (
	"fmt"
	"os"

	"ngx_pipeline/internal/platform/config"
	"ngx_pipeline/internal/platform/logger"
)

// DefaultConfigPath is used when neither -config nor CONFIG_PATH is given.
const DefaultConfigPath = "configs/config.yaml"

// ConfigPath resolves the config file path from the flag value, then CONFIG_PATH.
func ConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}
	return ""
}

// Bootstrap loads the config with environment overrides and builds the logger from it.
func Bootstrap(path string) (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	log = log.With(logger.String("env", cfg.Environment))
	return cfg, log, nil
}
