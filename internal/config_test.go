package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/tusk/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Store.Vault != DefaultVault {
		t.Errorf("vault = %q", cfg.Store.Vault)
	}
}

func TestDefaultsConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  DefaultsConfig
	}{
		{"priority", DefaultsConfig{Priority: "urgent", TimeZone: "UTC"}},
		{"time zone", DefaultsConfig{TimeZone: "Mars/Olympus"}},
		{"sort", DefaultsConfig{TimeZone: "UTC", Sort: "alphabetical"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestNormalizeVault(t *testing.T) {
	tests := map[string]string{
		"":             DefaultVault,
		"Work":         "work",
		"home stuff":   "home-stuff",
		"../escape":    "escape",
		"side_project": "side_project",
		"!!!":          DefaultVault,
	}
	for in, want := range tests {
		if got := NormalizeVault(in); got != want {
			t.Errorf("NormalizeVault(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConfig_DBPathDefaultsIntoVault(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.DataDir = "/data"
	cfg.Store.Vault = "work"
	if got, want := cfg.DBPath(), filepath.Join("/data", "vaults", "work", "index.db"); got != want {
		t.Errorf("DBPath = %q, want %q", got, want)
	}
	cfg.SQLite.Path = "/tmp/x.db"
	if cfg.DBPath() != "/tmp/x.db" {
		t.Errorf("explicit sqlite path ignored")
	}
}

func TestLoadOptional_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("TUSK_TEST_DIR", "/srv/tasks")
	data := "store:\n  data_dir: ${TUSK_TEST_DIR}\n  vault: Personal\ndefaults:\n  priority: medium\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOptional(path, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.DataDir != "/srv/tasks" {
		t.Errorf("data_dir = %q", cfg.Store.DataDir)
	}
	if cfg.Store.Vault != "personal" {
		t.Errorf("vault = %q", cfg.Store.Vault)
	}
	if cfg.Defaults.DefaultPriority() != "med" {
		t.Errorf("priority = %q", cfg.Defaults.DefaultPriority())
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("unset fields should keep defaults, port = %d", cfg.App.HTTP.Port)
	}
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), cfg); err != nil {
		t.Fatalf("missing file should be fine: %v", err)
	}
	if cfg.Defaults.TimeZone != "Local" {
		t.Errorf("time zone = %q", cfg.Defaults.TimeZone)
	}
}
