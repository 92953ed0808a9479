package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration shared by all services. Each service reads
// the sections it needs.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	MQ       MQConfig       `yaml:"mq"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Push     PushConfig     `yaml:"push"`
	Reminder ReminderConfig `yaml:"reminder"`
}

// Load reads config/base.yaml, merges an optional per-environment overlay
// (config/<env>.yaml), and finally applies environment variable overrides.
// env comes from CONFIG_ENV and defaults to "local".
func Load(env string, configDir string) (*Config, error) {
	if configDir == "" {
		configDir = "config"
	}

	cfg := &Config{}
	if err := loadYAMLFile(filepath.Join(configDir, "base.yaml"), cfg); err != nil {
		return nil, fmt.Errorf("failed to load base.yaml: %w", err)
	}

	if env != "" && env != "base" {
		envFile := filepath.Join(configDir, fmt.Sprintf("%s.yaml", env))
		if _, err := os.Stat(envFile); err == nil {
			if err := loadYAMLFile(envFile, cfg); err != nil {
				return nil, fmt.Errorf("failed to load %s.yaml: %w", env, err)
			}
		}
	}

	OverrideServerFromEnv(&cfg.Server)
	OverrideDBFromEnv(&cfg.DB)
	OverrideMQFromEnv(&cfg.MQ)
	OverrideRedisFromEnv(&cfg.Redis)
	OverrideJWTFromEnv(&cfg.JWT)
	OverridePushFromEnv(&cfg.Push)

	return cfg, nil
}

func loadYAMLFile(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetConfigEnv returns the config environment (CONFIG_ENV, default "local").
func GetConfigEnv() string {
	return GetEnv("CONFIG_ENV", "local")
}
