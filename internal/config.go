package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/steinmetz/vorlage/internal/rules"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Engine EngineConfig      `yaml:"engine"`
	Errors ErrorsConfig      `yaml:"errors"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	return c.Errors.Validate()
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

// VaultConfig holds the path to the template vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
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

// EngineConfig embeds the validation engine's thresholds and weights.
// Zero values fall back to the engine defaults.
type EngineConfig struct {
	Rules rules.Config `yaml:",inline"`
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	return validation.ValidateStruct(&c.Rules,
		validation.Field(&c.Rules.MinContentLength, validation.Min(0)),
		validation.Field(&c.Rules.HeadingThreshold, validation.Min(0)),
		validation.Field(&c.Rules.ErrorWeight, validation.Min(0)),
		validation.Field(&c.Rules.WarningWeight, validation.Min(0)),
		validation.Field(&c.Rules.InfoWeight, validation.Min(0)),
	)
}

// Effective returns the rule config with zero values replaced by defaults.
func (c *EngineConfig) Effective() rules.Config {
	def := rules.DefaultConfig()
	out := c.Rules
	if out.MinContentLength == 0 {
		out.MinContentLength = def.MinContentLength
	}
	if out.HeadingThreshold == 0 {
		out.HeadingThreshold = def.HeadingThreshold
	}
	if out.ErrorWeight == 0 {
		out.ErrorWeight = def.ErrorWeight
	}
	if out.WarningWeight == 0 {
		out.WarningWeight = def.WarningWeight
	}
	if out.InfoWeight == 0 {
		out.InfoWeight = def.InfoWeight
	}
	if out.RevisionScore == 0 {
		out.RevisionScore = def.RevisionScore
	}
	return out
}

// ErrorsConfig holds the error log and retry defaults.
type ErrorsConfig struct {
	LogCapacity int           `yaml:"log_capacity"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// Validate validates the error handling configuration.
func (c *ErrorsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogCapacity, validation.Min(0)),
		validation.Field(&c.MaxRetries, validation.Min(0)),
	)
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
			Path: "./vorlagen",
		},
		SQLite: SQLiteConfig{
			Path: "./vorlage.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Engine: EngineConfig{
			Rules: rules.DefaultConfig(),
		},
		Errors: ErrorsConfig{
			LogCapacity: 100,
			MaxRetries:  3,
			RetryDelay:  500 * time.Millisecond,
		},
	}
}
