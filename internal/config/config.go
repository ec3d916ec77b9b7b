package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Config is the root configuration for the support bot.
type Config struct {
	General    GeneralConfig    `json:"general"`
	Brand      BrandConfig      `json:"brand"`
	Channels   ChannelsConfig   `json:"channels"`
	Model      ModelConfig      `json:"model"`
	Pipeline   PipelineConfig   `json:"pipeline"`
	Redaction  RedactionConfig  `json:"redaction"`
	Logbook    LogbookConfig    `json:"logbook"`
	Moderation ModerationConfig `json:"moderation"`
	Metrics    MetricsConfig    `json:"metrics"`
}

type GeneralConfig struct {
	DataDir  string `json:"dataDir"`
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"` // optional log file path
}

// BrandConfig describes the brand the bot answers for.
type BrandConfig struct {
	Name       string `json:"name"`
	Tone       string `json:"tone"`
	InfoPath   string `json:"infoPath"`
	MaxChars   int    `json:"maxChars"`   // brand text beyond this is truncated
	AutoReload bool   `json:"autoReload"` // reload on file change in addition to !refresh
}

type ChannelsConfig struct {
	Discord  DiscordConfig  `json:"discord"`
	Telegram TelegramConfig `json:"telegram"`
}

type DiscordConfig struct {
	Enabled          bool   `json:"enabled"`
	Token            string `json:"token"`
	GuildID          string `json:"guildId,omitempty"` // optional: restrict to specific guild
	TargetChannel    string `json:"targetChannel"`
	ModeratorChannel string `json:"moderatorChannel"`
}

type TelegramConfig struct {
	Enabled   bool           `json:"enabled"`
	Token     string         `json:"token"`
	AllowFrom FlexStringList `json:"allowFrom"`
	ParseMode string         `json:"parseMode"`
}

// ModelConfig configures the hosted language-model provider.
type ModelConfig struct {
	APIKey          string   `json:"apiKey"`
	Preferred       []string `json:"preferred"` // ordered family preferences, substring match
	Temperature     float64  `json:"temperature"`
	MaxOutputTokens int      `json:"maxOutputTokens"`
	MaxRetries      int      `json:"maxRetries"`
	RateLimitPerMin int      `json:"rateLimitPerMinute,omitempty"`
}

type PipelineConfig struct {
	AutoPost              bool `json:"autoPost"`
	MinQuestionLength     int  `json:"minQuestionLength"`
	MaxQuestionChars      int  `json:"maxQuestionChars"` // question text beyond this is trimmed
	MaxConcurrentMessages int  `json:"maxConcurrentMessages"`
}

type RedactionConfig struct {
	RulesPath string `json:"rulesPath,omitempty"` // optional extra YAML rules
}

type LogbookConfig struct {
	Path string `json:"path"`
}

type ModerationConfig struct {
	DBPath string `json:"dbPath"`
}

// MetricsConfig configures the observability endpoint.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Endpoint string `json:"endpoint"`
}

// FlexStringList is a []string that can unmarshal from JSON arrays containing
// both strings and numbers (e.g. ["123", 456] both become "123", "456").
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	// Fallback: array of mixed types
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

// DefaultConfigDir returns the default config directory (~/.supportbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".supportbot"
	}
	return filepath.Join(home, ".supportbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	applyEnv(cfg)

	cfg.General.DataDir = ExpandPath(cfg.General.DataDir)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Brand.InfoPath = ExpandPath(cfg.Brand.InfoPath)
	cfg.Logbook.Path = ExpandPath(cfg.Logbook.Path)
	cfg.Moderation.DBPath = ExpandPath(cfg.Moderation.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyEnv lets the usual deployment variables override file values, so a
// config checked into a repo never has to carry secrets.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Channels.Discord.Token = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("TARGET_CHANNEL_NAME"); v != "" {
		cfg.Channels.Discord.TargetChannel = v
	}
	if v := os.Getenv("MODERATOR_CHANNEL_NAME"); v != "" {
		cfg.Channels.Discord.ModeratorChannel = v
	}
	if v := os.Getenv("BRAND_NAME"); v != "" {
		cfg.Brand.Name = v
	}
	if v := os.Getenv("BRAND_TONE"); v != "" {
		cfg.Brand.Tone = v
	}
	if v := os.Getenv("AUTO_POST"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Pipeline.AutoPost = b
		}
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Channels.Discord.Enabled {
		if cfg.Channels.Discord.Token == "" {
			errs = append(errs, "channels.discord.token is required (or set DISCORD_TOKEN)")
		}
		if cfg.Channels.Discord.TargetChannel == "" {
			errs = append(errs, "channels.discord.targetChannel is required")
		}
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token == "" {
		errs = append(errs, "channels.telegram.token is required")
	}
	if cfg.Model.APIKey == "" {
		errs = append(errs, "model.apiKey is required (or set GEMINI_API_KEY)")
	}
	if len(cfg.Model.Preferred) == 0 {
		errs = append(errs, "model.preferred must list at least one model family")
	}
	if cfg.Model.Temperature < 0 || cfg.Model.Temperature > 2 {
		errs = append(errs, "model.temperature must be between 0 and 2")
	}
	if cfg.Model.MaxOutputTokens < 1 {
		errs = append(errs, "model.maxOutputTokens must be >= 1")
	}
	if cfg.Brand.Name == "" {
		errs = append(errs, "brand.name is required")
	}
	if cfg.Brand.InfoPath == "" {
		errs = append(errs, "brand.infoPath is required")
	}
	if cfg.Brand.MaxChars < 1 {
		errs = append(errs, "brand.maxChars must be >= 1")
	}
	if cfg.Pipeline.MinQuestionLength < 1 {
		errs = append(errs, "pipeline.minQuestionLength must be >= 1")
	}
	if cfg.Pipeline.MaxQuestionChars < 1 {
		errs = append(errs, "pipeline.maxQuestionChars must be >= 1")
	}
	if cfg.Pipeline.MaxConcurrentMessages < 1 || cfg.Pipeline.MaxConcurrentMessages > 100 {
		errs = append(errs, "pipeline.maxConcurrentMessages must be between 1 and 100")
	}
	if cfg.Logbook.Path == "" {
		errs = append(errs, "logbook.path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
