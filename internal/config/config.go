// Package config loads layered settings: built-in defaults, an optional
// TOML file, then an environment-variable overlay, exactly the layering
// spec.md §6 describes for the legacy Python configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// GeneralSettings holds process-wide connection and logging settings.
type GeneralSettings struct {
	DBURL    string `toml:"db_url"`
	LogLevel string `toml:"log_level"`
}

// AnthropicSettings configures the LLM summarization/skill-generation capability.
type AnthropicSettings struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// ContextSettings tunes the PreSubmit/PostStop pipeline and the worker.
type ContextSettings struct {
	Enabled              bool    `toml:"enabled"`
	RetrievalEnabled     bool    `toml:"retrieval_enabled"`
	RecordingEnabled     bool    `toml:"recording_enabled"`
	RetrievalTimeoutMS   int     `toml:"retrieval_timeout_ms"`
	RecordingTimeoutMS   int     `toml:"recording_timeout_ms"`
	MaxContextTokens     int     `toml:"max_context_tokens"`
	TurnSummaryModel     string  `toml:"turn_summary_model"`
	SessionSummaryModel  string  `toml:"session_summary_model"`
	WorkerPollInterval   float64 `toml:"worker_poll_interval"`
}

// SkillSettings gates the skill-generation subsystem.
type SkillSettings struct {
	AutoGenerate         bool    `toml:"auto_generate"`
	MinQualityScore      float64 `toml:"min_quality_score"`
	DefaultScope         string  `toml:"default_scope"`
	MaxAutoSkillsPerDay  int     `toml:"max_auto_skills_per_day"`
	SkillGenerationModel string  `toml:"skill_generation_model"`
	GithubToken          string  `toml:"github_token"`
}

// AdminSettings configures the ambient admin/introspection HTTP surface
// added in SPEC_FULL.md §C. It has no Python-original counterpart.
type AdminSettings struct {
	Enabled     bool   `toml:"enabled"`
	Addr        string `toml:"addr"`
	CORSOrigins string `toml:"cors_origins"`
	JWKSURL     string `toml:"jwks_url"`
}

// Settings is the fully resolved configuration tree.
type Settings struct {
	Environment string
	TablePrefix string

	General   GeneralSettings   `toml:"general"`
	Anthropic AnthropicSettings `toml:"anthropic"`
	Context   ContextSettings   `toml:"context"`
	Skills    SkillSettings     `toml:"skills"`
	Admin     AdminSettings     `toml:"admin"`
}

// defaultConfigPath mirrors the Python project's "~/.config/simon/config.toml"
// layout, renamed to this project's own directory.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "focus", "config.toml")
}

func defaults() *Settings {
	return &Settings{
		Environment: "dev",
		General: GeneralSettings{
			LogLevel: "info",
		},
		Anthropic: AnthropicSettings{
			Model: "claude-haiku-4-5-20251001",
		},
		Context: ContextSettings{
			Enabled:             true,
			RetrievalEnabled:    true,
			RecordingEnabled:    true,
			RetrievalTimeoutMS:  2000,
			RecordingTimeoutMS:  200,
			MaxContextTokens:    1500,
			TurnSummaryModel:    "claude-haiku-4-5-20251001",
			SessionSummaryModel: "claude-haiku-4-5-20251001",
			WorkerPollInterval:  2.0,
		},
		Skills: SkillSettings{
			AutoGenerate:         true,
			MinQualityScore:      0.6,
			DefaultScope:         "personal",
			MaxAutoSkillsPerDay:  3,
			SkillGenerationModel: "claude-sonnet-4-5-20250929",
		},
		Admin: AdminSettings{
			Enabled:     false,
			Addr:        ":8080",
			CORSOrigins: "http://localhost:3000",
		},
	}
}

// Load resolves Settings from defaults, an optional TOML file (configPath,
// or the default "~/.config/focus/config.toml" if empty and present), and
// finally an environment-variable overlay. It never fails because the
// config file is missing; it fails only on a malformed file or a setting
// that violates Validate.
func Load(configPath string) (*Settings, error) {
	s := defaults()

	if configPath == "" {
		configPath = defaultConfigPath()
	}
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := toml.Unmarshal(data, s); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	applyEnvOverlay(s)

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// applyEnvOverlay overrides settings from environment variables by the
// same convention the Python project used (e.g. ANTHROPIC_API_KEY).
func applyEnvOverlay(s *Settings) {
	s.Environment = getEnv("ENVIRONMENT", s.Environment)
	s.TablePrefix = getTablePrefix(s.Environment)

	s.General.DBURL = getEnv("DATABASE_URL", s.General.DBURL)
	s.General.LogLevel = getEnv("LOG_LEVEL", s.General.LogLevel)

	s.Anthropic.APIKey = getEnv("ANTHROPIC_API_KEY", s.Anthropic.APIKey)
	s.Anthropic.Model = getEnv("ANTHROPIC_MODEL", s.Anthropic.Model)

	s.Skills.GithubToken = getEnv("GITHUB_TOKEN", s.Skills.GithubToken)

	s.Admin.Addr = getEnv("FOCUS_ADMIN_ADDR", s.Admin.Addr)
	s.Admin.CORSOrigins = getEnv("FOCUS_ADMIN_CORS_ORIGINS", s.Admin.CORSOrigins)
	s.Admin.JWKSURL = getEnv("FOCUS_ADMIN_JWKS_URL", s.Admin.JWKSURL)
	if v := os.Getenv("FOCUS_ADMIN_ENABLED"); v != "" {
		s.Admin.Enabled, _ = strconv.ParseBool(v)
	}
}

// Validate enforces the cross-field constraints spec.md implies for
// skill-subsystem thresholds and counters.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Skills.MinQualityScore, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&s.Skills.MaxAutoSkillsPerDay, validation.Min(0)),
		validation.Field(&s.Skills.DefaultScope, validation.In("personal", "project")),
		validation.Field(&s.Context.MaxContextTokens, validation.Min(0)),
	)
}

func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
