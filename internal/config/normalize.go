package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	if err := c.normalizeLLM(); err != nil {
		return err
	}
	c.normalizeNotifications()
	if err := c.normalizeAudit(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	if value, ok := lookupEnv("INCIDENT_API_TOKEN"); ok {
		c.API.Token = value
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if value, ok := lookupEnv("ALLOWED_ORIGINS"); ok {
		c.API.AllowedOrigins = strings.Split(value, ",")
	}
	c.API.AllowedOrigins = cleanList(c.API.AllowedOrigins)
}

// normalizeLLM applies OPENAI_* environment overrides on top of file values.
func (c *Config) normalizeLLM() error {
	if value, ok := lookupEnv("OPENAI_API_KEY"); ok {
		c.LLM.APIKey = value
	}
	if value, ok := lookupEnv("OPENAI_BASE_URL"); ok {
		c.LLM.BaseURL = value
	}
	if value, ok := lookupEnv("OPENAI_MODEL"); ok {
		c.LLM.Model = value
	}
	if value, ok := lookupEnv("OPENAI_FALLBACK_MODEL"); ok {
		c.LLM.FallbackModel = value
	}
	if value, ok := lookupEnv("OPENAI_MAX_RETRIES"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("OPENAI_MAX_RETRIES: invalid integer %q", value)
		}
		c.LLM.MaxRetries = parsed
	}
	if value, ok := lookupEnv("OPENAI_TIMEOUT"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("OPENAI_TIMEOUT: invalid integer %q", value)
		}
		c.LLM.RequestTimeoutSeconds = parsed
	}

	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.FallbackModel = strings.TrimSpace(c.LLM.FallbackModel)
	return nil
}

func (c *Config) normalizeNotifications() {
	if value, ok := lookupEnv("NTFY_TOPIC"); ok {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeAudit() error {
	c.Audit.Path = strings.TrimSpace(c.Audit.Path)
	if c.Audit.Path == "" {
		c.Audit.Path = filepath.Join(c.Paths.StateDir, defaultAuditFile)
	}
	var err error
	if c.Audit.Path, err = expandPath(c.Audit.Path); err != nil {
		return fmt.Errorf("audit.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// lookupEnv reports a trimmed environment value, treating blank as unset.
func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
