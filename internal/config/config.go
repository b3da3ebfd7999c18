package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port          string        `mapstructure:"port"`
	SiteURL       string        `mapstructure:"site_url"`
	DatabaseURL   string        `mapstructure:"database_url"`
	SessionSecret string        `mapstructure:"session_secret"`
	RedisURL      string        `mapstructure:"redis_url"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	CacheSize     int           `mapstructure:"cache_size"`
	LogLevel      string        `mapstructure:"log_level"`
	TemplatesDir  string        `mapstructure:"templates_dir"`
	StaticDir     string        `mapstructure:"static_dir"`
	// DevLogin enables username-only sign-in. Never set in production.
	DevLogin bool `mapstructure:"dev_login"`
}

var defaults = map[string]any{
	"port":           "8080",
	"site_url":       "http://localhost:8080",
	"database_url":   "host=localhost user=postgres password=postgres dbname=elim port=5432 sslmode=disable TimeZone=Asia/Bishkek",
	"session_secret": "secret_key_change_me",
	"redis_url":      "",
	"cache_ttl":      5 * time.Minute,
	"cache_size":     500,
	"log_level":      "info",
	"templates_dir":  "./web/templates",
	"static_dir":     "./web/static",
	"dev_login":      false,
}

// Load reads .env (if any), then an optional config/config.yaml, then the
// environment. Later sources win.
func Load() (*Config, error) {
	// variables can come from the system as well
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key, strings.ToUpper(key))
	}

	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
