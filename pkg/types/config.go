package types

import "time"

// HTTPConfig holds shared HTTP settings used by clients that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "lang/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds settings for the enrichment backend.
type AIConfig struct {
	HTTPConfig `yaml:",inline"`

	// URL overrides the chat completions endpoint (e.g. for a proxy).
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Model is the chat model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries bounds retries of 429 and 503 responses (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Temperature is passed through to the chat completion request.
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// AnkiConfig locates the AnkiConnect endpoint.
type AnkiConfig struct {
	HTTPConfig `yaml:",inline"`

	// URL is the AnkiConnect endpoint (default http://localhost:8765).
	URL string `json:"url" yaml:"url"`
}

// SyncConfig holds settings for the sync stage.
type SyncConfig struct {
	// UpdateExisting makes sync update a matching note already present on
	// the target (found by the primary field) instead of adding a new one.
	UpdateExisting bool `json:"update_existing" yaml:"update_existing"`
}

// AppConfig groups the settings read from the config file, environment, and flags.
type AppConfig struct {
	// Profile is the language profile code used when -p is not given.
	Profile string `json:"profile" yaml:"profile"`

	// DataDir holds one directory per profile (store, state) and profiles/.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// LogDir receives one diagnostic log file per profile.
	LogDir string `json:"log_dir" yaml:"log_dir"`

	// SecretsDir holds one file per secret (e.g. openai-api-key).
	SecretsDir string `json:"secrets_dir" yaml:"secrets_dir"`

	AI   AIConfig   `json:"openai" yaml:"openai"`
	Anki AnkiConfig `json:"anki" yaml:"anki"`
	Sync SyncConfig `json:"sync" yaml:"sync"`
}
