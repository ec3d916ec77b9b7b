package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			DataDir:  "~/.supportbot/data",
			LogLevel: "info",
		},
		Brand: BrandConfig{
			Name:       "Acme",
			Tone:       "friendly, concise, and professional",
			InfoPath:   "~/.supportbot/brand_info.txt",
			MaxChars:   18000,
			AutoReload: true,
		},
		Channels: ChannelsConfig{
			Discord: DiscordConfig{
				Enabled:          true,
				TargetChannel:    "product-questions",
				ModeratorChannel: "moderator",
			},
			Telegram: TelegramConfig{
				Enabled:   false,
				ParseMode: "Markdown",
			},
		},
		Model: ModelConfig{
			Preferred: []string{
				"gemini-2.5-flash",
				"gemini-2.5-pro",
				"gemini-1.5-flash",
				"gemini-1.5",
			},
			Temperature:     0.4,
			MaxOutputTokens: 400,
			MaxRetries:      3,
		},
		Pipeline: PipelineConfig{
			AutoPost:              false,
			MinQuestionLength:     5,
			MaxQuestionChars:      2000,
			MaxConcurrentMessages: 5,
		},
		Logbook: LogbookConfig{
			Path: "~/.supportbot/data/interactions.jsonl",
		},
		Moderation: ModerationConfig{
			DBPath: "~/.supportbot/data/moderation.db",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Addr:     "127.0.0.1:9090",
			Endpoint: "/metrics",
		},
	}
}
