package config

const (
	defaultConfigPath        = "~/.config/incident/config.toml"
	defaultStateDir          = "~/.local/share/incident"
	defaultLogDir            = "~/.local/share/incident/logs"
	defaultAuditFile         = "audit.db"
	defaultAPIBind           = "127.0.0.1:8000"
	defaultAnalyzePerMinute  = 10
	defaultRefinePerMinute   = 20
	defaultLLMBaseURL        = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel          = "gpt-4o"
	defaultLLMFallbackModel  = "gpt-3.5-turbo"
	defaultLLMMaxRetries     = 3
	defaultLLMRequestTimeout = 60
	defaultLLMTotalTimeout   = 90
	defaultLLMTemperature    = 0.3
	defaultCircuitThreshold  = 5
	defaultCircuitRecovery   = 60
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 14
	defaultAuditRetention    = 90
)

var defaultAllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		API: API{
			Bind:             defaultAPIBind,
			AllowedOrigins:   append([]string(nil), defaultAllowedOrigins...),
			AnalyzePerMinute: defaultAnalyzePerMinute,
			RefinePerMinute:  defaultRefinePerMinute,
		},
		LLM: LLM{
			BaseURL:               defaultLLMBaseURL,
			Model:                 defaultLLMModel,
			FallbackModel:         defaultLLMFallbackModel,
			MaxRetries:            defaultLLMMaxRetries,
			RequestTimeoutSeconds: defaultLLMRequestTimeout,
			TotalTimeoutSeconds:   defaultLLMTotalTimeout,
			Temperature:           defaultLLMTemperature,
		},
		Circuit: Circuit{
			FailureThreshold: defaultCircuitThreshold,
			RecoverySeconds:  defaultCircuitRecovery,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Circuit:        true,
			Errors:         true,
		},
		Audit: Audit{
			Enabled:       true,
			RetentionDays: defaultAuditRetention,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
