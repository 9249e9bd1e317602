// Package config loads runtime settings from the environment and an optional
// dairyforms.yaml file.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const minSecretKeyLength = 32

var insecureSecretKeys = map[string]struct{}{
	"change_me_in_production":                    {},
	"replace_with_at_least_32_random_characters": {},
}

type Config struct {
	Port              string        `mapstructure:"port"`
	SecretKey         string        `mapstructure:"secret_key"`
	DataDir           string        `mapstructure:"data_dir"`
	AdminUser         string        `mapstructure:"admin_user"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
	CookieSecure      bool          `mapstructure:"cookie_secure"`
	AccessLog         bool          `mapstructure:"access_log"`
	LogLevel          string        `mapstructure:"log_level"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
}

// Load reads configFile when given, otherwise ./dairyforms.yaml if present.
// Environment variables such as PORT or SECRET_KEY override file values.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("secret_key", "")
	v.SetDefault("data_dir", "data")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_password_hash", "")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("access_log", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("session_ttl", 30*24*time.Hour)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("dairyforms")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	cfg.DataDir = strings.TrimSpace(cfg.DataDir)
	return cfg, nil
}

// ValidateServe checks the settings the HTTP server cannot run without.
func (cfg *Config) ValidateServe() error {
	if _, err := resolveSecretKey(cfg.SecretKey); err != nil {
		return err
	}
	port, err := resolvePort(cfg.Port)
	if err != nil {
		return err
	}
	cfg.Port = port
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	return nil
}

func resolveSecretKey(raw string) (string, error) {
	secret := strings.TrimSpace(raw)
	if secret == "" {
		return "", errors.New("SECRET_KEY is required")
	}
	if _, insecure := insecureSecretKeys[secret]; insecure {
		return "", errors.New("SECRET_KEY uses an insecure placeholder value")
	}
	if len(secret) < minSecretKeyLength {
		return "", fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretKeyLength)
	}
	return secret, nil
}

func resolvePort(raw string) (string, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		return "8080", nil
	}
	value, err := strconv.Atoi(port)
	if err != nil {
		return "", fmt.Errorf("PORT must be numeric: %w", err)
	}
	if value < 1 || value > 65535 {
		return "", fmt.Errorf("PORT must be between 1 and 65535, got %d", value)
	}
	return port, nil
}
