package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramAllowFrom = "TELEGRAM_ALLOW_FROM"
	envDeepgramAPIKey    = "DEEPGRAM_API_KEY"
	envOpenAIAPIKey      = "OPENAI_API_KEY"
	envTodoistAPIToken   = "TODOIST_API_TOKEN"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Channels      ChannelsConfig      `json:"channels"`
	Transcription TranscriptionConfig `json:"transcription"`
	Parser        ParserConfig        `json:"parser"`
	TaskAPI       TaskAPIConfig       `json:"task_api"`
	Auth          AuthConfig          `json:"auth"`
	Bot           BotConfig           `json:"bot"`
	Logging       LoggingConfig       `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// ChannelsConfig stores transport adapter settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

// TelegramConfig configures Telegram channel integration.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allow_from"`
}

// TranscriptionConfig configures the primary/fallback transcription pair
// and the audio acceptance policy applied before any provider call.
type TranscriptionConfig struct {
	Primary            DeepgramConfig `json:"primary"`
	Fallback           WhisperConfig  `json:"fallback"`
	MaxDurationSeconds int            `json:"max_duration_seconds"`
	MaxFileSizeBytes   int64          `json:"max_file_size_bytes"`
}

// DeepgramConfig configures the cloud transcription provider.
type DeepgramConfig struct {
	APIKey                string `json:"api_key"`
	BaseURL               string `json:"base_url"`
	Model                 string `json:"model"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// WhisperConfig configures the fallback transcription provider. BaseURL may
// point at a local whisper-compatible server.
type WhisperConfig struct {
	APIKey                string `json:"api_key"`
	BaseURL               string `json:"base_url"`
	Model                 string `json:"model"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// ParserConfig configures the structured-parsing backend and its retry
// discipline.
type ParserConfig struct {
	APIKey                string   `json:"api_key"`
	BaseURL               string   `json:"base_url"`
	Model                 string   `json:"model"`
	RequestTimeoutSeconds int      `json:"request_timeout_seconds"`
	MaxAttempts           int      `json:"max_attempts"`
	BackoffBaseMillis     int      `json:"backoff_base_millis"`
	ExtraProfanity        []string `json:"extra_profanity,omitempty"`
}

// TaskAPIConfig configures the downstream task-service client.
type TaskAPIConfig struct {
	BaseURL               string `json:"base_url"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	RateLimitRequests     int    `json:"rate_limit_requests"`
	RateLimitWindowSecs   int    `json:"rate_limit_window_seconds"`
	CacheTTLSeconds       int    `json:"cache_ttl_seconds"`
}

// AuthConfig supplies downstream credentials per user. Tokens map transport
// user IDs to personal API tokens; DefaultToken serves single-user setups.
type AuthConfig struct {
	DefaultToken  string            `json:"default_token"`
	DefaultLocale string            `json:"default_locale"`
	Tokens        map[string]string `json:"tokens,omitempty"`
}

// BotConfig configures the status server bind settings.
type BotConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LoadConfig resolves config.json, unmarshals it, applies environment
// overrides, and fills defaults.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	ApplyDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides injects secret-bearing env settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Channels.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}
	if key := strings.TrimSpace(os.Getenv(envDeepgramAPIKey)); key != "" {
		cfg.Transcription.Primary.APIKey = key
	}
	if key := strings.TrimSpace(os.Getenv(envOpenAIAPIKey)); key != "" {
		if strings.TrimSpace(cfg.Parser.APIKey) == "" {
			cfg.Parser.APIKey = key
		}
		if strings.TrimSpace(cfg.Transcription.Fallback.APIKey) == "" {
			cfg.Transcription.Fallback.APIKey = key
		}
	}
	if token := strings.TrimSpace(os.Getenv(envTodoistAPIToken)); token != "" {
		cfg.Auth.DefaultToken = token
	}
}

// ApplyDefaults fills zero-valued settings with operational defaults.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Transcription.Primary.Model == "" {
		cfg.Transcription.Primary.Model = "nova-3"
	}
	if cfg.Transcription.Primary.RequestTimeoutSeconds <= 0 {
		cfg.Transcription.Primary.RequestTimeoutSeconds = 30
	}
	if cfg.Transcription.Fallback.Model == "" {
		cfg.Transcription.Fallback.Model = "whisper-1"
	}
	if cfg.Transcription.Fallback.RequestTimeoutSeconds <= 0 {
		cfg.Transcription.Fallback.RequestTimeoutSeconds = 60
	}
	if cfg.Transcription.MaxDurationSeconds <= 0 {
		cfg.Transcription.MaxDurationSeconds = 300
	}
	if cfg.Transcription.MaxFileSizeBytes <= 0 {
		cfg.Transcription.MaxFileSizeBytes = 20 * 1024 * 1024
	}

	if cfg.Parser.Model == "" {
		cfg.Parser.Model = "gpt-4o"
	}
	if cfg.Parser.RequestTimeoutSeconds <= 0 {
		cfg.Parser.RequestTimeoutSeconds = 30
	}
	if cfg.Parser.MaxAttempts <= 0 {
		cfg.Parser.MaxAttempts = 3
	}
	if cfg.Parser.BackoffBaseMillis <= 0 {
		cfg.Parser.BackoffBaseMillis = 500
	}

	if cfg.TaskAPI.BaseURL == "" {
		cfg.TaskAPI.BaseURL = "https://api.todoist.com/rest/v2"
	}
	if cfg.TaskAPI.RequestTimeoutSeconds <= 0 {
		cfg.TaskAPI.RequestTimeoutSeconds = 30
	}
	if cfg.TaskAPI.RateLimitRequests <= 0 {
		cfg.TaskAPI.RateLimitRequests = 450
	}
	if cfg.TaskAPI.RateLimitWindowSecs <= 0 {
		cfg.TaskAPI.RateLimitWindowSecs = 900
	}
	if cfg.TaskAPI.CacheTTLSeconds <= 0 {
		cfg.TaskAPI.CacheTTLSeconds = 300
	}

	if cfg.Auth.DefaultLocale == "" {
		cfg.Auth.DefaultLocale = "en"
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is TASKCLAW_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("TASKCLAW_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("TASKCLAW_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}
