package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const MaxPrefixLength = 5

type Config struct {
	DiscordToken                   string          `yaml:"discord_token"`
	DatabasePath                   string          `yaml:"database_path"`
	LogLevel                       string          `yaml:"log_level"`
	DefaultPrefix                  string          `yaml:"default_prefix"`
	MasterUsers                    []string        `yaml:"master_users"`
	DMMessage                      string          `yaml:"dm_message"`
	InsufficientPermissionsMessage string          `yaml:"insufficient_permissions_message"`
	HTTP                           HTTPConfig      `yaml:"http"`
	Spam                           SpamConfig      `yaml:"spam"`
	AutoClean                      AutoCleanConfig `yaml:"auto_clean"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type SpamConfig struct {
	MaxWarnings        int `yaml:"max_warnings"`
	BurstMessages      int `yaml:"burst_messages"`
	BurstWindowSeconds int `yaml:"burst_window_seconds"`
}

type AutoCleanConfig struct {
	DeletesPerSecond float64 `yaml:"deletes_per_second"`
	Burst            int     `yaml:"burst"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:                   "yuno.db",
		LogLevel:                       "info",
		DefaultPrefix:                  ".",
		DMMessage:                      "I'm just a bot :'(. I can't answer to you.",
		InsufficientPermissionsMessage: "${author} You don't have permission to do that~",
		HTTP:                           HTTPConfig{Enabled: false, Addr: ":8080"},
		Spam:                           SpamConfig{MaxWarnings: 3, BurstMessages: 6, BurstWindowSeconds: 8},
		AutoClean:                      AutoCleanConfig{DeletesPerSecond: 1, Burst: 2},
	}
}

func Load() (Config, error) {
	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if err := applyDefaults(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FormatInsufficientPermissions fills the ${author} placeholder of the
// configured denial message.
func (c Config) FormatInsufficientPermissions(mention string) string {
	return strings.ReplaceAll(c.InsufficientPermissionsMessage, "${author}", mention)
}

func (c Config) IsMasterUser(userID string) bool {
	for _, id := range c.MasterUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultPrefix = envString("DEFAULT_PREFIX", cfg.DefaultPrefix)
	cfg.DMMessage = envString("DM_MESSAGE", cfg.DMMessage)
	cfg.InsufficientPermissionsMessage = envString("INSUFFICIENT_PERMISSIONS_MESSAGE", cfg.InsufficientPermissionsMessage)
	cfg.MasterUsers = envList("MASTER_USERS", cfg.MasterUsers)
	if single := os.Getenv("MASTER_USER"); single != "" {
		cfg.MasterUsers = appendUnique(cfg.MasterUsers, strings.TrimSpace(single))
	}
	cfg.HTTP.Enabled = envBool("HTTP_ENABLED", cfg.HTTP.Enabled)
	cfg.HTTP.Addr = envString("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Spam.MaxWarnings = envInt("SPAM_MAX_WARNINGS", cfg.Spam.MaxWarnings)
	cfg.Spam.BurstMessages = envInt("SPAM_BURST_MESSAGES", cfg.Spam.BurstMessages)
	cfg.Spam.BurstWindowSeconds = envInt("SPAM_BURST_WINDOW_SECONDS", cfg.Spam.BurstWindowSeconds)
	cfg.AutoClean.DeletesPerSecond = envFloat("AUTO_CLEAN_DELETES_PER_SECOND", cfg.AutoClean.DeletesPerSecond)
}

func applyDefaults(cfg *Config) error {
	if cfg.DefaultPrefix == "" {
		cfg.DefaultPrefix = "."
	}
	if utf8.RuneCountInString(cfg.DefaultPrefix) > MaxPrefixLength {
		return errors.New("default_prefix must be at most 5 characters")
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "yuno.db"
	}
	if cfg.DMMessage == "" {
		cfg.DMMessage = DefaultConfig().DMMessage
	}
	if cfg.InsufficientPermissionsMessage == "" {
		cfg.InsufficientPermissionsMessage = DefaultConfig().InsufficientPermissionsMessage
	}
	if cfg.Spam.MaxWarnings <= 0 {
		cfg.Spam.MaxWarnings = 3
	}
	if cfg.AutoClean.DeletesPerSecond <= 0 {
		cfg.AutoClean.DeletesPerSecond = 1
	}
	if cfg.AutoClean.Burst <= 0 {
		cfg.AutoClean.Burst = 1
	}
	return nil
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = appendUnique(out, item)
		}
	}
	return out
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
