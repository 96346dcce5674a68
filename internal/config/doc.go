// Package config loads, normalizes, and validates incident service configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files and an optional .env file, and applies
// environment overrides such as OPENAI_API_KEY and ALLOWED_ORIGINS. The Config
// type centralizes every knob the daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
