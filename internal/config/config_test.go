package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token-from-env")
	t.Setenv("GEMINI_API_KEY", "key-from-env")

	path := writeConfig(t, `{"brand": {"name": "Acme", "infoPath": "/tmp/brand.txt"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Brand.MaxChars != 18000 {
		t.Fatalf("Brand.MaxChars = %d, want default 18000", cfg.Brand.MaxChars)
	}
	if cfg.Channels.Discord.TargetChannel != "product-questions" {
		t.Fatalf("TargetChannel = %q", cfg.Channels.Discord.TargetChannel)
	}
	if len(cfg.Model.Preferred) == 0 || cfg.Model.Preferred[0] != "gemini-2.5-flash" {
		t.Fatalf("Model.Preferred = %v", cfg.Model.Preferred)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("TARGET_CHANNEL_NAME", "support")
	t.Setenv("AUTO_POST", "true")

	path := writeConfig(t, `{
		"brand": {"name": "Acme", "infoPath": "/tmp/brand.txt"},
		"channels": {"discord": {"enabled": true, "token": "file-token", "targetChannel": "questions"}}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Channels.Discord.Token != "env-token" {
		t.Fatalf("Token = %q, want env override", cfg.Channels.Discord.Token)
	}
	if cfg.Channels.Discord.TargetChannel != "support" {
		t.Fatalf("TargetChannel = %q", cfg.Channels.Discord.TargetChannel)
	}
	if !cfg.Pipeline.AutoPost {
		t.Fatal("AutoPost not overridden by env")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MY_TOKEN", "secret123")

	result := ExpandEnvVars(`{"token": "${MY_TOKEN}", "other": "${UNSET_VAR:-fallback}", "kept": "${NO_DEFAULT_UNSET}"}`)
	if !strings.Contains(result, "secret123") {
		t.Fatalf("env var not expanded: %s", result)
	}
	if !strings.Contains(result, "fallback") {
		t.Fatalf("default not applied: %s", result)
	}
	if !strings.Contains(result, "${NO_DEFAULT_UNSET}") {
		t.Fatalf("unset var without default should be kept: %s", result)
	}
}

func TestValidateMissingCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Discord.Enabled = true

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() passed without token and API key")
	}
	msg := err.Error()
	if !strings.Contains(msg, "discord.token") || !strings.Contains(msg, "apiKey") {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Model.APIKey = "k"
	cfg.Channels.Discord.Enabled = false
	cfg.Brand.Name = ""
	cfg.Model.Temperature = 5
	cfg.Pipeline.MinQuestionLength = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() passed invalid config")
	}
	for _, want := range []string{"brand.name", "temperature", "minQuestionLength"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("Validate() error missing %q: %v", want, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("Load() succeeded with missing file")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() succeeded with invalid JSON")
	}
}

func TestFlexStringList(t *testing.T) {
	path := writeConfig(t, `{
		"brand": {"name": "Acme", "infoPath": "/tmp/brand.txt"},
		"model": {"apiKey": "k"},
		"channels": {
			"discord": {"enabled": false},
			"telegram": {"allowFrom": ["123", 456]}
		}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	got := []string(cfg.Channels.Telegram.AllowFrom)
	if len(got) != 2 || got[0] != "123" || got[1] != "456" {
		t.Fatalf("AllowFrom = %v", got)
	}
}
