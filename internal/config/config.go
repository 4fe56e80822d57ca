package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the meeting assistant
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Google    GoogleConfig    `mapstructure:"google"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Sync      SyncConfig      `mapstructure:"sync"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// GoogleConfig holds the Google Calendar OAuth settings
type GoogleConfig struct {
	ClientID          string `mapstructure:"client_id"`
	ClientSecret      string `mapstructure:"client_secret"`
	RedirectURL       string `mapstructure:"redirect_url"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// AssistantConfig holds extraction and parsing settings
type AssistantConfig struct {
	Timezone        string `mapstructure:"timezone"`
	DefaultDuration int    `mapstructure:"default_duration"`
	DirectoryPath   string `mapstructure:"directory_path"`
	PatternsPath    string `mapstructure:"patterns_path"`
	UserID          string `mapstructure:"user_id"`
}

// SyncConfig holds the background sync schedule
type SyncConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.Set("storage.sqlite_path", filepath.Join(dataDir, "meetwise.db"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "meetwise.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (MEETWISE_SERVER_PORT, MEETWISE_GOOGLE_CLIENT_ID, etc.)
	v.SetEnvPrefix("MEETWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	// Google defaults
	v.SetDefault("google.redirect_url", "http://localhost:8080/auth/google/callback")
	v.SetDefault("google.requests_per_minute", 300)

	// Assistant defaults
	v.SetDefault("assistant.timezone", "Local")
	v.SetDefault("assistant.default_duration", 60)
	v.SetDefault("assistant.user_id", "default")

	// Sync defaults
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.schedule", "@every 5m")
}

func getDefaultDataDir() string {
	// Try XDG_DATA_HOME first
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "meetwise")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "meetwise")
}

// loadEnvOverrides handles env vars that Viper misses when the config
// file never mentioned the key
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	// Server settings
	cfg.Server.Address = getEnv("MEETWISE_SERVER_ADDRESS", cfg.Server.Address)
	if port := os.Getenv("MEETWISE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	// Storage settings
	cfg.Storage.DataDir = getEnv("MEETWISE_STORAGE_DATA_DIR", cfg.Storage.DataDir)

	// Google settings, with the bare names people actually export
	if id := ResolveEnvWithAliases("MEETWISE_GOOGLE_CLIENT_ID"); id != "" {
		cfg.Google.ClientID = id
	}
	if secret := ResolveEnvWithAliases("MEETWISE_GOOGLE_CLIENT_SECRET"); secret != "" {
		cfg.Google.ClientSecret = secret
	}
	cfg.Google.RedirectURL = getEnv("MEETWISE_GOOGLE_REDIRECT_URL", cfg.Google.RedirectURL)

	// Assistant settings
	if tz := ResolveEnvWithAliases("MEETWISE_ASSISTANT_TIMEZONE"); tz != "" {
		cfg.Assistant.Timezone = tz
	}
	cfg.Assistant.DirectoryPath = getEnv("MEETWISE_ASSISTANT_DIRECTORY_PATH", cfg.Assistant.DirectoryPath)
	cfg.Assistant.PatternsPath = getEnv("MEETWISE_ASSISTANT_PATTERNS_PATH", cfg.Assistant.PatternsPath)
	cfg.Assistant.UserID = getEnv("MEETWISE_ASSISTANT_USER_ID", cfg.Assistant.UserID)

	// Sync settings
	cfg.Sync.Schedule = getEnv("MEETWISE_SYNC_SCHEDULE", cfg.Sync.Schedule)
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}

	if cfg.Assistant.DefaultDuration <= 0 {
		return fmt.Errorf("assistant.default_duration must be positive")
	}

	// A client ID without a secret is a misconfiguration; both empty just
	// means Google is not connected yet.
	if cfg.Google.ClientID != "" && cfg.Google.ClientSecret == "" {
		return fmt.Errorf("google.client_secret is required when google.client_id is set")
	}

	cfg.Assistant.DirectoryPath = expandPath(cfg.Assistant.DirectoryPath)
	cfg.Assistant.PatternsPath = expandPath(cfg.Assistant.PatternsPath)

	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// PatternsFile returns the configured patterns file, defaulting into the
// data directory.
func (c *Config) PatternsFile() string {
	if c.Assistant.PatternsPath != "" {
		return c.Assistant.PatternsPath
	}
	return filepath.Join(c.Storage.DataDir, "patterns.json")
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Assistant.Timezone == "" || c.Assistant.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Assistant.Timezone)
}
