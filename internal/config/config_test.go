package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func validConfig() Config {
	cfg := Defaults()
	cfg.Collections = CollectionsConfig{Tracker: "t", Catalog: "c", Log: "l"}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"store.base_url", cfg.Store.BaseURL, "https://api.notion.com/v1"},
		{"store.api_version", cfg.Store.APIVersion, "2025-09-03"},
		{"store.token_env", cfg.Store.TokenEnv, "NOTION_API_KEY"},
		{"store.timeout_seconds", cfg.Store.TimeoutSeconds, 30},
		{"quests.daily_count", cfg.Quests.DailyCount, 5},
		{"quests.cooldown_days", cfg.Quests.CooldownDays, 3},
		{"quests.timezone", cfg.Quests.Timezone, "Europe/London"},
		{"quests.default_skill", cfg.Quests.DefaultSkill, "General"},
		{"schedule.reset", cfg.Schedule.Reset, "0 0 * * *"},
		{"schedule.select", cfg.Schedule.Select, "0 9 * * *"},
		{"schedule.reconcile", cfg.Schedule.Reconcile, "0 10-23 * * *"},
		{"supervisor.state_dir", cfg.Supervisor.StateDir, ".quest"},
		{"supervisor.max_retries", cfg.Supervisor.MaxRetries, 2},
		{"history.retention", cfg.History.Retention, 30},
		{"tui.accent_color", cfg.TUI.AccentColor, DefaultAccentColor},
		{"notifications.on_error", cfg.Notifications.OnError, true},
		{"notifications.on_summary", cfg.Notifications.OnSummary, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing collections", func(c *Config) { c.Collections = CollectionsConfig{} }, "collections.tracker must not be empty"},
		{"bad base url", func(c *Config) { c.Store.BaseURL = "api.notion.com" }, "store.base_url"},
		{"negative daily count", func(c *Config) { c.Quests.DailyCount = -1 }, "quests.daily_count"},
		{"zero daily count allowed", func(c *Config) { c.Quests.DailyCount = 0 }, ""},
		{"negative cooldown", func(c *Config) { c.Quests.CooldownDays = -2 }, "quests.cooldown_days"},
		{"unknown timezone", func(c *Config) { c.Quests.Timezone = "Mars/Olympus" }, "quests.timezone"},
		{"bad cron", func(c *Config) { c.Schedule.Select = "every morning" }, "schedule.select"},
		{"empty schedule disables phase", func(c *Config) { c.Schedule.Reconcile = "" }, ""},
		{"negative retries", func(c *Config) { c.Supervisor.MaxRetries = -1 }, "supervisor.max_retries"},
		{"empty state dir", func(c *Config) { c.Supervisor.StateDir = "" }, "supervisor.state_dir"},
		{"negative retention", func(c *Config) { c.History.Retention = -1 }, "history.retention"},
		{"bad accent", func(c *Config) { c.TUI.AccentColor = "amber" }, "tui.accent_color"},
		{"bad notify url", func(c *Config) { c.Notifications.URL = "ftp://x" }, "notifications.url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	t.Run("joins every issue", func(t *testing.T) {
		cfg := Defaults()
		cfg.Quests.DailyCount = -1
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected error")
		}
		for _, want := range []string{"collections.tracker", "collections.catalog", "collections.log", "quests.daily_count"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("missing %q in %v", want, err)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, `
[store]
token = "secret_abc"
timeout_seconds = 10

[collections]
tracker = "trk"
catalog = "cat"
log = "lg"

[quests]
daily_count = 3
cooldown_days = 2
timezone = "America/New_York"

[schedule]
reconcile = "*/30 10-22 * * *"

[history]
dir = "journal"
`)

		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("validate: %v", err)
		}

		tests := []struct {
			name string
			got  any
			want any
		}{
			{"store.token", cfg.Store.Token, "secret_abc"},
			{"store.timeout_seconds", cfg.Store.TimeoutSeconds, 10},
			{"store.base_url (default)", cfg.Store.BaseURL, "https://api.notion.com/v1"},
			{"collections.tracker", cfg.Collections.Tracker, "trk"},
			{"collections.catalog", cfg.Collections.Catalog, "cat"},
			{"collections.log", cfg.Collections.Log, "lg"},
			{"quests.daily_count", cfg.Quests.DailyCount, 3},
			{"quests.cooldown_days", cfg.Quests.CooldownDays, 2},
			{"quests.timezone", cfg.Quests.Timezone, "America/New_York"},
			{"quests.default_skill (default)", cfg.Quests.DefaultSkill, "General"},
			{"schedule.reconcile", cfg.Schedule.Reconcile, "*/30 10-22 * * *"},
			{"schedule.reset (default)", cfg.Schedule.Reset, "0 0 * * *"},
			{"timeout", cfg.Timeout(), 10 * time.Second},
			{"history dir resolved", cfg.Resolve(cfg.History.Dir), filepath.Join(cfg.Dir, "journal")},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if tt.got != tt.want {
					t.Errorf("got %v, want %v", tt.got, tt.want)
				}
			})
		}
	})

	t.Run("unknown keys rejected", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `
[quests]
daily_cuont = 3
`)
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "quests.daily_cuont") {
			t.Fatalf("error = %v, want unknown key", err)
		}
	})

	t.Run("missing file returns error", func(t *testing.T) {
		_, err := Load("/nonexistent/quest.toml")
		if err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("invalid toml returns error", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "not valid [[[ toml")
		_, err := Load(path)
		if err == nil {
			t.Error("expected error for invalid TOML")
		}
	})

	t.Run("loads .env beside the config", func(t *testing.T) {
		const key = "QUEST_TEST_DOTENV_TOKEN"
		t.Cleanup(func() { os.Unsetenv(key) })

		dir := t.TempDir()
		path := writeConfig(t, dir, "[store]\ntoken_env = \""+key+"\"\n")
		if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=from-dotenv\n"), 0600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		tok, err := cfg.Token()
		if err != nil {
			t.Fatal(err)
		}
		if tok != "from-dotenv" {
			t.Errorf("token: got %q, want %q", tok, "from-dotenv")
		}
	})
}

func TestToken(t *testing.T) {
	t.Run("literal wins", func(t *testing.T) {
		t.Setenv("QUEST_TEST_TOKEN", "env")
		cfg := Config{Store: StoreConfig{Token: "literal", TokenEnv: "QUEST_TEST_TOKEN"}}
		tok, err := cfg.Token()
		if err != nil || tok != "literal" {
			t.Fatalf("got %q, %v", tok, err)
		}
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("QUEST_TEST_TOKEN", "  env  ")
		cfg := Config{Store: StoreConfig{TokenEnv: "QUEST_TEST_TOKEN"}}
		tok, err := cfg.Token()
		if err != nil || tok != "env" {
			t.Fatalf("got %q, %v", tok, err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		t.Setenv("QUEST_TEST_TOKEN", "")
		cfg := Config{Store: StoreConfig{TokenEnv: "QUEST_TEST_TOKEN"}}
		_, err := cfg.Token()
		if !errors.Is(err, ErrNoToken) {
			t.Fatalf("error = %v, want ErrNoToken", err)
		}
		if !strings.Contains(err.Error(), "$QUEST_TEST_TOKEN") {
			t.Errorf("error should name the variable: %v", err)
		}
	})
}

func TestLocation(t *testing.T) {
	cfg := Defaults()
	loc, err := cfg.Location()
	if err != nil {
		t.Fatal(err)
	}
	if loc.String() != "Europe/London" {
		t.Errorf("location: got %s", loc)
	}

	cfg.Quests.Timezone = "Nowhere/Special"
	if _, err := cfg.Location(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestResolve(t *testing.T) {
	cfg := Config{Dir: "/srv/quest"}
	tests := []struct{ in, want string }{
		{".quest", filepath.Join("/srv/quest", ".quest")},
		{"/var/lib/quest", "/var/lib/quest"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cfg.Resolve(tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadAutoDiscovery(t *testing.T) {
	t.Run("finds quest.toml in parent directory", func(t *testing.T) {
		root := t.TempDir()
		child := filepath.Join(root, "sub", "dir")
		if err := os.MkdirAll(child, 0755); err != nil {
			t.Fatal(err)
		}
		writeConfig(t, root, "[quests]\ndaily_count = 7\n")

		origDir, _ := os.Getwd()
		t.Cleanup(func() { os.Chdir(origDir) })
		if err := os.Chdir(child); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Quests.DailyCount != 7 {
			t.Errorf("quests.daily_count: got %d, want 7", cfg.Quests.DailyCount)
		}
	})

	t.Run("returns error when quest.toml not found anywhere", func(t *testing.T) {
		dir := t.TempDir()
		origDir, _ := os.Getwd()
		t.Cleanup(func() { os.Chdir(origDir) })
		if err := os.Chdir(dir); err != nil {
			t.Fatal(err)
		}

		_, err := Load("")
		if err == nil {
			t.Error("expected error when quest.toml not found")
		}
	})
}
