// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/lang-engine/internal/anki"
	"github.com/pdiddy/lang-engine/internal/enrich"
	"github.com/pdiddy/lang-engine/internal/logging"
	"github.com/pdiddy/lang-engine/internal/profile"
	"github.com/pdiddy/lang-engine/internal/secrets"
	"github.com/pdiddy/lang-engine/internal/vocab"
	"github.com/pdiddy/lang-engine/pkg/types"
)

const defaultProfile = "cn"

// setDefaults registers the default value of every config key. Keys use
// "." for nesting, so LANGCLI_ANKI_URL sets anki.url.
func setDefaults(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	dataDir := ".lang"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "lang")
	}

	v.SetDefault("profile", defaultProfile)
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("log_dir", "")
	v.SetDefault("secrets_dir", ".secrets")

	v.SetDefault("anki.url", anki.DefaultURL)
	v.SetDefault("anki.timeout", 10*time.Second)

	v.SetDefault("openai.url", "")
	v.SetDefault("openai.model", enrich.DefaultModel)
	v.SetDefault("openai.timeout", 60*time.Second)
	v.SetDefault("openai.max_retries", 3)
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("openai.user_agent", "lang/"+version)

	v.SetDefault("sync.update_existing", false)
}

// loadConfig reads the resolved settings out of v.
func loadConfig(v *viper.Viper) types.AppConfig {
	cfg := types.AppConfig{
		Profile:    strings.ToLower(strings.TrimSpace(v.GetString("profile"))),
		DataDir:    v.GetString("data_dir"),
		LogDir:     v.GetString("log_dir"),
		SecretsDir: v.GetString("secrets_dir"),
		AI: types.AIConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("openai.timeout"),
				UserAgent: v.GetString("openai.user_agent"),
			},
			URL:         v.GetString("openai.url"),
			Model:       v.GetString("openai.model"),
			MaxRetries:  v.GetInt("openai.max_retries"),
			Temperature: v.GetFloat64("openai.temperature"),
		},
		Anki: types.AnkiConfig{
			HTTPConfig: types.HTTPConfig{Timeout: v.GetDuration("anki.timeout")},
			URL:        v.GetString("anki.url"),
		},
		Sync: types.SyncConfig{UpdateExisting: v.GetBool("sync.update_existing")},
	}
	if cfg.Profile == "" {
		cfg.Profile = defaultProfile
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.DataDir, "logs")
	}
	return cfg
}

// app is what every command needs once flags and config are resolved.
type app struct {
	cfg     types.AppConfig
	profile *types.LanguageProfile
	log     *zap.Logger
}

// newApp loads the config, the selected profile, and its log file.
// Callers must call close.
func newApp() (*app, error) {
	cfg := loadConfig(viper.GetViper())

	p, err := profile.Load(cfg.Profile, cfg.DataDir)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.LogDir, p.Code, viper.GetBool("debug"))
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, profile: p, log: log}, nil
}

func (a *app) close() {
	a.log.Sync()
}

// profileDir is where the store and state of the current profile live.
func (a *app) profileDir() string {
	return profile.Dir(a.cfg.DataDir, a.profile.Code)
}

func (a *app) openStore() (vocab.Store, error) {
	return vocab.Open(a.profile, a.profileDir())
}

func (a *app) state() (profile.State, error) {
	return profile.LoadState(a.cfg.DataDir, a.profile)
}

// level returns flagValue checked against the profile, or the stored
// current level when the flag is empty.
func (a *app) level(flagValue string) (string, error) {
	if flagValue != "" {
		return profile.CheckLevel(a.profile, flagValue)
	}
	st, err := a.state()
	if err != nil {
		return "", err
	}
	return st.CurrentLevel, nil
}

func (a *app) ankiClient() *anki.Client {
	return anki.New(a.cfg.Anki.URL, a.cfg.Anki.Timeout, a.log)
}

// enricher builds the OpenAI-backed enricher. The API key comes from
// OPENAI_API_KEY, a .env file, or the secrets directory.
func (a *app) enricher() (*enrich.Enricher, error) {
	r := secrets.Resolver{
		Dir:      a.cfg.SecretsDir,
		EnvFiles: []string{".env", filepath.Join(a.cfg.DataDir, ".env")},
	}
	key, err := r.Lookup(secrets.OpenAIKey)
	if err != nil {
		return nil, err
	}

	backend := &enrich.OpenAIBackend{
		URL:         a.cfg.AI.URL,
		APIKey:      key,
		Model:       a.cfg.AI.Model,
		Temperature: a.cfg.AI.Temperature,
		MaxRetries:  a.cfg.AI.MaxRetries,
		UserAgent:   a.cfg.AI.UserAgent,
		Client:      newHTTPClient(a.cfg.AI.Timeout),
		Log:         a.log,
	}
	return &enrich.Enricher{Backend: backend, Profile: a.profile, Log: a.log}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// levelLabel formats a context tag for display, e.g. "HSK 3".
func levelLabel(p *types.LanguageProfile, tag string) string {
	if label, ok := p.Levels.Special[tag]; ok {
		return strings.TrimLeft(label, ":")
	}
	return strings.TrimSpace(p.Levels.Type + " " + tag)
}

// withApp wraps a RunE body with newApp and close.
func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}
		defer a.close()
		return run(cmd, args, a)
	}
}
