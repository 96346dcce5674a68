package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateCircuit(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("llm.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'incident config init')", defaultPath)
	}
	if c.LLM.MaxRetries < 1 || c.LLM.MaxRetries > 10 {
		return errors.New("llm.max_retries must be between 1 and 10")
	}
	if c.LLM.RequestTimeoutSeconds <= 0 {
		return errors.New("llm.request_timeout_seconds must be positive")
	}
	if c.LLM.TotalTimeoutSeconds <= 0 {
		return errors.New("llm.total_timeout_seconds must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if !strings.HasPrefix(c.LLM.BaseURL, "http://") && !strings.HasPrefix(c.LLM.BaseURL, "https://") {
		return fmt.Errorf("llm.base_url must be an http(s) URL, got %q", c.LLM.BaseURL)
	}
	return nil
}

func (c *Config) validateCircuit() error {
	if c.Circuit.FailureThreshold < 1 {
		return errors.New("circuit.failure_threshold must be >= 1")
	}
	if c.Circuit.RecoverySeconds < 1 {
		return errors.New("circuit.recovery_seconds must be >= 1")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.AnalyzePerMinute < 1 {
		return errors.New("api.analyze_per_minute must be >= 1")
	}
	if c.API.RefinePerMinute < 1 {
		return errors.New("api.refine_per_minute must be >= 1")
	}
	for _, origin := range c.API.AllowedOrigins {
		if origin == "*" {
			return errors.New("api.allowed_origins must list explicit origins, not *")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	if c.Audit.RetentionDays < 0 {
		return errors.New("audit.retention_days must be >= 0")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
