package bot

import (
	"log/slog"
	"testing"
)

func TestLoadConfig_WithValidToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token-123")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DiscordToken != "test-token-123" {
		t.Errorf("expected token %q, got %q", "test-token-123", cfg.DiscordToken)
	}
}

func TestLoadConfig_WithEmptyToken(t *testing.T) {
	// Clear the environment variable
	t.Setenv("DISCORD_TOKEN", "")

	_, err := LoadConfig()
	if err == nil {
		t.Error("expected error for missing token, got nil")
	}
}

func TestLoadConfig_LoggingDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected level info, got %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected format json, got %q", cfg.LogFormat)
	}
}

func TestLoadConfig_LoggingOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected level debug, got %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("expected format text, got %q", cfg.LogFormat)
	}
}

func TestLoadConfig_InvalidLogLevel(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("LOG_LEVEL", "loud")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for invalid log level, got nil")
	}
}

func TestLoadConfig_CommandGuildID(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("COMMAND_GUILD_ID", "123456789012345678")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.CommandGuildID != "123456789012345678" {
		t.Errorf("expected guild %q, got %q", "123456789012345678", cfg.CommandGuildID)
	}
}
