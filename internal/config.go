package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Vault     VaultConfig       `yaml:"vault"`
	Languages LanguagesConfig   `yaml:"languages"`
	Cache     CacheConfig       `yaml:"cache"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	AI        AIConfig          `yaml:"ai"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Languages.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the layout of the Markdown vault.
// DictionaryDir and TemplatesDir are relative to Path.
type VaultConfig struct {
	Path          string `yaml:"path"`
	DictionaryDir string `yaml:"dictionary_dir"`
	TemplatesDir  string `yaml:"templates_dir"`
	TemplateFile  string `yaml:"template_file"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.DictionaryDir, validation.Required),
	)
}

// LanguagesConfig names the language pair the vault teaches.
// Source is also the frontmatter key that carries translations,
// so it must match the vault's notes exactly (e.g. "English").
type LanguagesConfig struct {
	Target string `yaml:"target"`
	Source string `yaml:"source"`
	Locale string `yaml:"locale"`
}

// Validate validates the languages configuration.
func (c *LanguagesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Target, validation.Required),
		validation.Field(&c.Source, validation.Required),
		validation.Field(&c.Locale, validation.Required),
	)
}

// CacheConfig holds dictionary snapshot cache configuration.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// TTL returns the snapshot time-to-live.
func (c *CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AIConfig holds classification backend configuration.
//
// An empty APIKey disables classification entirely; the API then
// answers classify requests with 502.
type AIConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	MaxAttempts    int    `yaml:"max_attempts"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxAttempts, validation.Min(0)),
		validation.Field(&c.PollIntervalMS, validation.Min(0)),
	)
}

// Enabled returns true when a classification backend is configured.
func (c *AIConfig) Enabled() bool {
	return c.APIKey != ""
}

// PollInterval returns the delay between classification polls.
func (c *AIConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:          "./vault",
			DictionaryDir: "dictionary",
			TemplatesDir:  "templates",
			TemplateFile:  "templates/word.md",
		},
		Languages: LanguagesConfig{
			Target: "French",
			Source: "English",
			Locale: "fr",
		},
		Cache: CacheConfig{
			TTLSeconds: 5,
		},
		SQLite: SQLiteConfig{
			Path: "./dicolex.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
