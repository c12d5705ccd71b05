package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Transcription.Primary.Model != "nova-3" {
		t.Fatalf("primary model = %q, want %q", cfg.Transcription.Primary.Model, "nova-3")
	}
	if cfg.Transcription.MaxDurationSeconds != 300 {
		t.Fatalf("max duration = %d, want 300", cfg.Transcription.MaxDurationSeconds)
	}
	if cfg.Transcription.MaxFileSizeBytes != 20*1024*1024 {
		t.Fatalf("max file size = %d, want 20MiB", cfg.Transcription.MaxFileSizeBytes)
	}
	if cfg.Parser.MaxAttempts != 3 {
		t.Fatalf("max attempts = %d, want 3", cfg.Parser.MaxAttempts)
	}
	if cfg.Parser.BackoffBaseMillis != 500 {
		t.Fatalf("backoff base = %d, want 500", cfg.Parser.BackoffBaseMillis)
	}
	if cfg.TaskAPI.RateLimitRequests != 450 || cfg.TaskAPI.RateLimitWindowSecs != 900 {
		t.Fatalf("rate limit = %d/%ds, want 450/900s", cfg.TaskAPI.RateLimitRequests, cfg.TaskAPI.RateLimitWindowSecs)
	}
	if cfg.TaskAPI.CacheTTLSeconds != 300 {
		t.Fatalf("cache ttl = %d, want 300", cfg.TaskAPI.CacheTTLSeconds)
	}
	if cfg.Auth.DefaultLocale != "en" {
		t.Fatalf("default locale = %q, want %q", cfg.Auth.DefaultLocale, "en")
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.Parser.Model = "gpt-4o-mini"
	cfg.TaskAPI.RateLimitRequests = 10
	ApplyDefaults(cfg)

	if cfg.Parser.Model != "gpt-4o-mini" {
		t.Fatalf("parser model = %q, want explicit value kept", cfg.Parser.Model)
	}
	if cfg.TaskAPI.RateLimitRequests != 10 {
		t.Fatalf("rate limit = %d, want explicit value kept", cfg.TaskAPI.RateLimitRequests)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg-token")
	t.Setenv("TELEGRAM_ALLOW_FROM", "1001, 1002")
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")
	t.Setenv("OPENAI_API_KEY", "oa-key")
	t.Setenv("TODOIST_API_TOKEN", "td-token")

	cfg := &Config{}
	applyEnvOverrides(cfg)

	if cfg.Channels.Telegram.Token != "tg-token" {
		t.Fatalf("telegram token = %q", cfg.Channels.Telegram.Token)
	}
	if len(cfg.Channels.Telegram.AllowFrom) != 2 || cfg.Channels.Telegram.AllowFrom[1] != "1002" {
		t.Fatalf("allow from = %v", cfg.Channels.Telegram.AllowFrom)
	}
	if cfg.Transcription.Primary.APIKey != "dg-key" {
		t.Fatalf("deepgram key = %q", cfg.Transcription.Primary.APIKey)
	}
	if cfg.Parser.APIKey != "oa-key" || cfg.Transcription.Fallback.APIKey != "oa-key" {
		t.Fatalf("openai key not applied: parser=%q fallback=%q", cfg.Parser.APIKey, cfg.Transcription.Fallback.APIKey)
	}
	if cfg.Auth.DefaultToken != "td-token" {
		t.Fatalf("default token = %q", cfg.Auth.DefaultToken)
	}
}

func TestOpenAIKeyDoesNotOverrideExplicitKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg := &Config{}
	cfg.Parser.APIKey = "file-key"
	applyEnvOverrides(cfg)

	if cfg.Parser.APIKey != "file-key" {
		t.Fatalf("parser key = %q, want file value kept", cfg.Parser.APIKey)
	}
	if cfg.Transcription.Fallback.APIKey != "env-key" {
		t.Fatalf("fallback key = %q, want env fill", cfg.Transcription.Fallback.APIKey)
	}
}

func TestLoadConfigFromExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"channels": {"telegram": {"enabled": true, "token": "file-token"}},
		"task_api": {"rate_limit_requests": 5}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TASKCLAW_CONFIG", path)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TODOIST_API_TOKEN", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if !cfg.Channels.Telegram.Enabled || cfg.Channels.Telegram.Token != "file-token" {
		t.Fatalf("telegram config = %+v", cfg.Channels.Telegram)
	}
	if cfg.TaskAPI.RateLimitRequests != 5 {
		t.Fatalf("rate limit = %d, want file value", cfg.TaskAPI.RateLimitRequests)
	}
	if cfg.TaskAPI.BaseURL == "" {
		t.Fatal("expected defaults applied on top of file config")
	}
}

func TestLoadConfigRejectsBadExplicitPath(t *testing.T) {
	t.Setenv("TASKCLAW_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestParseCSV(t *testing.T) {
	t.Parallel()

	got := parseCSV(" a, ,b ,, c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("parseCSV = %v, want [a b c]", got)
	}
}
