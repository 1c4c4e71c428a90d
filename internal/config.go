package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tusk/internal/models"
	"github.com/starford/tusk/internal/query"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// DefaultVault is used when no vault name is configured.
const DefaultVault = "default"

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Store    StoreConfig       `yaml:"store"`
	Defaults DefaultsConfig    `yaml:"defaults"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Defaults.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
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

// StoreConfig says where day files live.
type StoreConfig struct {
	DataDir string `yaml:"data_dir"`
	Vault   string `yaml:"vault"`
}

// Validate normalises the vault name and checks the data directory.
func (c *StoreConfig) Validate() error {
	c.Vault = NormalizeVault(c.Vault)
	return validation.ValidateStruct(c,
		validation.Field(&c.DataDir, validation.Required),
	)
}

// VaultRoot is the directory holding the YYYY/MM tree of the active vault.
func (c *StoreConfig) VaultRoot() string {
	return filepath.Join(c.DataDir, "vaults", NormalizeVault(c.Vault))
}

var vaultUnsafe = regexp.MustCompile(`[^a-z0-9_-]+`)

// NormalizeVault lowercases name and replaces anything outside
// [a-z0-9_-] with a dash. An empty result becomes DefaultVault.
func NormalizeVault(name string) string {
	n := vaultUnsafe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	n = strings.Trim(n, "-")
	if n == "" {
		return DefaultVault
	}
	return n
}

// DefaultsConfig holds per-user defaults for new tasks and listings.
type DefaultsConfig struct {
	Priority string `yaml:"priority"`
	TimeZone string `yaml:"time_zone"`
	Sort     string `yaml:"sort"`
}

// Validate validates the defaults.
func (c *DefaultsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Priority, validation.By(func(v any) error {
			_, err := models.ParsePriority(v.(string))
			return err
		})),
		validation.Field(&c.TimeZone, validation.Required, validation.By(func(v any) error {
			_, err := time.LoadLocation(v.(string))
			return err
		})),
		validation.Field(&c.Sort, validation.By(func(v any) error {
			_, err := query.ParseSortKey(v.(string))
			return err
		})),
	)
}

// DefaultPriority returns the configured priority; Validate has already
// checked it parses.
func (c *DefaultsConfig) DefaultPriority() models.Priority {
	p, _ := models.ParsePriority(c.Priority)
	return p
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return nil
}

// DBPath returns the index location, defaulting to index.db inside the vault.
func (c *Config) DBPath() string {
	if c.SQLite.Path != "" {
		return c.SQLite.Path
	}
	return filepath.Join(c.Store.VaultRoot(), "index.db")
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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
			LogLevel: slog.LevelWarn,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			DataDir: defaultDataDir(),
			Vault:   DefaultVault,
		},
		Defaults: DefaultsConfig{
			Priority: string(models.PriorityNone),
			TimeZone: "Local",
			Sort:     string(query.SortIndex),
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "tusk")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "tusk")
	}
	return ".tusk"
}
