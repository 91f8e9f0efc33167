// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath   = "config.toml"
	DefaultHTTPAddr     = ":8080"
	DefaultJWTExpiresIn = "24h"
	DefaultPGHost       = "127.0.0.1"
	DefaultPGPort       = 5432
	DefaultPGUser       = "postgres"
	DefaultPGDatabase   = "wpp_dashboard"
	DefaultPGSSLMode    = "disable"
	DefaultWABaseURL    = "https://graph.facebook.com"
	DefaultWAAPIVersion = "v22.0"
	DefaultSendDelayMS  = 150
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Admin    AdminConfig    `toml:"admin"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	WhatsApp WhatsAppConfig `toml:"whatsapp"`
}

// LogConfig holds logging level and format (e.g. level=info, format=json).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AdminConfig holds the bootstrap agent account (email, bcrypt password hash).
type AdminConfig struct {
	Email        string `toml:"email"`
	PasswordHash string `toml:"password_hash"`
}

// AuthConfig holds JWT secret and token expiry (e.g. 24h).
type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// WhatsAppConfig holds WhatsApp Cloud API credentials and send pacing.
type WhatsAppConfig struct {
	BaseURL           string `toml:"base_url"`
	APIVersion        string `toml:"api_version"`
	AccessToken       string `toml:"access_token"`
	PhoneNumberID     string `toml:"phone_number_id"`
	BusinessAccountID string `toml:"business_account_id"`
	VerifyToken       string `toml:"verify_token"`
	SendDelayMS       int    `toml:"send_delay_ms"`
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
// An empty path falls back to CONFIG_PATH, then to DefaultConfigPath. A missing file is not an
// error: defaults plus environment overrides still produce a usable config.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:     DefaultWABaseURL,
			APIVersion:  DefaultWAAPIVersion,
			SendDelayMS: DefaultSendDelayMS,
		},
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides lets deployments inject secrets without writing them to the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("PG_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("WA_TOKEN"); v != "" {
		cfg.WhatsApp.AccessToken = v
	}
	if v := os.Getenv("WA_PHONE_NUMBER_ID"); v != "" {
		cfg.WhatsApp.PhoneNumberID = v
	}
	if v := os.Getenv("WA_BUSINESS_ACCOUNT_ID"); v != "" {
		cfg.WhatsApp.BusinessAccountID = v
	}
	if v := os.Getenv("WA_WEBHOOK_VERIFY_TOKEN"); v != "" {
		cfg.WhatsApp.VerifyToken = v
	}
}
