// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for outbound provider requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "ocr2md/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ProviderConfig holds settings for the OCR provider client.
type ProviderConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the provider API root (default "https://api.mistral.ai/v1").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey is the provider credential. It is normally loaded from
	// .secrets/ or the environment rather than the config file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the OCR model identifier (default "mistral-ocr-latest").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// SignedURLExpiry is the lifetime in hours requested for signed URLs
	// (default 24).
	SignedURLExpiry int `json:"signed_url_expiry" yaml:"signed_url_expiry" mapstructure:"signed_url_expiry"`

	// RateLimitRetries enables backoff on HTTP 429. Zero disables retries.
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries" mapstructure:"rate_limit_retries"`

	// RequestsPerSecond throttles outbound calls. Zero means unlimited.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ConversionConfig holds settings for the orchestrator.
type ConversionConfig struct {
	// TempRoot is the parent directory for per-job temporary directories
	// (default: the system temp dir).
	TempRoot string `json:"temp_root" yaml:"temp_root" mapstructure:"temp_root"`

	// OutputDir is where the CLI writes rendered Markdown files.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// MaxFinishedJobs bounds how many completed or failed jobs the job
	// store retains (default 256).
	MaxFinishedJobs int `json:"max_finished_jobs" yaml:"max_finished_jobs" mapstructure:"max_finished_jobs"`

	// Concurrency is the number of files the CLI converts at once (default 2).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// HistoryConfig holds settings for the conversion history ledger.
type HistoryConfig struct {
	// Dir holds the SQLite database. Empty disables history.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// Config groups all settings read from ocr2md.yaml.
type Config struct {
	Provider   ProviderConfig   `json:"provider" yaml:"provider" mapstructure:"provider"`
	Conversion ConversionConfig `json:"conversion" yaml:"conversion" mapstructure:"conversion"`
	History    HistoryConfig    `json:"history" yaml:"history" mapstructure:"history"`
}
