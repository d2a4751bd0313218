package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds settings for the local point-of-sale process.
type Config struct {
	ListenAddr     string
	DBPath         string
	RemoteURL      string
	RemoteTimeout  time.Duration
	SyncInterval   time.Duration
	SyncBackoffMin time.Duration
	SyncBackoffMax time.Duration
	LogLevel       string
	LogFile        string
}

// ServerConfig holds settings for the reference remote server.
type ServerConfig struct {
	ListenAddr        string
	DatabaseDSN       string
	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string
	LogLevel          string
	LogFile           string
}

// Load reads the local process configuration from the environment and, when
// configFile is non-empty, from that file. Environment variables win.
func Load(configFile string) (*Config, error) {
	v := newViper()
	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("DB_PATH", "/data/washpos.db")
	v.SetDefault("REMOTE_URL", "http://localhost:9090")
	v.SetDefault("REMOTE_TIMEOUT", 30*time.Second)
	v.SetDefault("SYNC_INTERVAL", time.Duration(0))
	v.SetDefault("SYNC_BACKOFF_MIN", time.Second)
	v.SetDefault("SYNC_BACKOFF_MAX", time.Minute)

	if err := readFile(v, configFile); err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddr:     v.GetString("LISTEN_ADDR"),
		DBPath:         v.GetString("DB_PATH"),
		RemoteURL:      v.GetString("REMOTE_URL"),
		RemoteTimeout:  v.GetDuration("REMOTE_TIMEOUT"),
		SyncInterval:   v.GetDuration("SYNC_INTERVAL"),
		SyncBackoffMin: v.GetDuration("SYNC_BACKOFF_MIN"),
		SyncBackoffMax: v.GetDuration("SYNC_BACKOFF_MAX"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFile:        v.GetString("LOG_FILE"),
	}
	if cfg.SyncBackoffMax < cfg.SyncBackoffMin {
		return nil, fmt.Errorf("SYNC_BACKOFF_MAX (%s) is below SYNC_BACKOFF_MIN (%s)", cfg.SyncBackoffMax, cfg.SyncBackoffMin)
	}
	return cfg, nil
}

// LoadServer reads the reference server configuration.
func LoadServer(configFile string) (*ServerConfig, error) {
	v := newViper()
	v.SetDefault("LISTEN_ADDR", ":9090")
	v.SetDefault("DATABASE_DSN", "/data/washpos-server.db")
	v.SetDefault("ADMIN_USERNAME", "admin")

	if err := readFile(v, configFile); err != nil {
		return nil, err
	}

	cfg := &ServerConfig{
		ListenAddr:        v.GetString("LISTEN_ADDR"),
		DatabaseDSN:       v.GetString("DATABASE_DSN"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		AdminUsername:     v.GetString("ADMIN_USERNAME"),
		AdminPasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFile:           v.GetString("LOG_FILE"),
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if cfg.AdminPasswordHash == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH is required")
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	return v
}

func readFile(v *viper.Viper, configFile string) error {
	if configFile == "" {
		return nil
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}
	return nil
}
