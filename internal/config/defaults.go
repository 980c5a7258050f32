package config

const (
	defaultConfigPath        = "~/.config/storyboard/config.toml"
	projectConfigName        = "storyboard.toml"
	defaultStateDir          = "~/.local/share/storyboard"
	defaultLogDir            = "~/.local/share/storyboard/logs"
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultImageModel        = "google/gemini-2.5-flash-image"
	defaultTextModel         = "google/gemini-3-pro-preview"
	defaultLLMReferer        = "https://github.com/storyboard/storyboard"
	defaultLLMTitle          = "Storyboard"
	defaultLLMTimeoutSeconds = 120
	defaultImageConcurrency  = 3
	defaultPromptConcurrency = 1
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultStylePrompt       = "Cinematic storyboard frame, consistent character design, soft natural lighting, 16:9 composition."
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			ImageModel:     defaultImageModel,
			TextModel:      defaultTextModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Batch: Batch{
			ImageConcurrency:  defaultImageConcurrency,
			PromptConcurrency: defaultPromptConcurrency,
		},
		Style: Style{
			PromptTemplate: defaultStylePrompt,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
