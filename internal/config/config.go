// Package config parses quest.toml configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // embedded IANA zones

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// FileName is the configuration file looked up by Load.
const FileName = "quest.toml"

// DefaultAccentColor is the default TUI accent color (amber).
const DefaultAccentColor = "#E8A33D"

// ErrNoToken is returned by Token when neither the config nor the
// environment provides a store token.
var ErrNoToken = errors.New("config: no store token configured")

// hexColorRe matches a 6-digit hex color string like "#E8A33D".
var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Config is the top-level quest.toml configuration.
type Config struct {
	Store         StoreConfig         `toml:"store"`
	Collections   CollectionsConfig   `toml:"collections"`
	Quests        QuestsConfig        `toml:"quests"`
	Schedule      ScheduleConfig      `toml:"schedule"`
	Supervisor    SupervisorConfig    `toml:"supervisor"`
	History       HistoryConfig       `toml:"history"`
	TUI           TUIConfig           `toml:"tui"`
	Notifications NotificationsConfig `toml:"notifications"`

	// Dir is the directory holding the loaded file. Relative paths in the
	// config resolve against it.
	Dir string `toml:"-"`
}

// StoreConfig points the Notion client at the API.
type StoreConfig struct {
	BaseURL        string `toml:"base_url"`
	APIVersion     string `toml:"api_version"`
	Token          string `toml:"token"`
	TokenEnv       string `toml:"token_env"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CollectionsConfig names the three data sources.
type CollectionsConfig struct {
	Tracker string `toml:"tracker"`
	Catalog string `toml:"catalog"`
	Log     string `toml:"log"`
}

// QuestsConfig controls selection and the day boundary.
type QuestsConfig struct {
	DailyCount   int    `toml:"daily_count"`
	CooldownDays int    `toml:"cooldown_days"`
	Timezone     string `toml:"timezone"`
	DefaultSkill string `toml:"default_skill"`
}

// ScheduleConfig holds one standard five-field cron expression per phase.
type ScheduleConfig struct {
	Reset     string `toml:"reset"`
	Select    string `toml:"select"`
	Reconcile string `toml:"reconcile"`
}

// SupervisorConfig controls retries and the state directory.
type SupervisorConfig struct {
	StateDir            string `toml:"state_dir"`
	MaxRetries          int    `toml:"max_retries"`
	RetryBackoffSeconds int    `toml:"retry_backoff_seconds"`
}

// HistoryConfig controls the run journal.
type HistoryConfig struct {
	Dir       string `toml:"dir"`
	Retention int    `toml:"retention"` // number of session files to keep; 0 = unlimited
}

// TUIConfig controls the terminal UI appearance.
type TUIConfig struct {
	AccentColor string `toml:"accent_color"`
}

// NotificationsConfig controls webhook/ntfy.sh notifications.
type NotificationsConfig struct {
	URL       string `toml:"url"`
	OnError   bool   `toml:"on_error"`
	OnSummary bool   `toml:"on_summary"`
	OnGrant   bool   `toml:"on_grant"`
}

// Validate checks the configuration for issues that would cause confusing
// runtime failures. It returns all found issues joined together.
func (c *Config) Validate() error {
	var errs []error

	if c.Store.BaseURL == "" || !isHTTPURL(c.Store.BaseURL) {
		errs = append(errs, fmt.Errorf("store.base_url must be a valid http or https URL"))
	}
	if c.Store.APIVersion == "" {
		errs = append(errs, fmt.Errorf("store.api_version must not be empty"))
	}
	if c.Store.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("store.timeout_seconds must be >= 0 (0 = client default)"))
	}

	if c.Collections.Tracker == "" {
		errs = append(errs, fmt.Errorf("collections.tracker must not be empty"))
	}
	if c.Collections.Catalog == "" {
		errs = append(errs, fmt.Errorf("collections.catalog must not be empty"))
	}
	if c.Collections.Log == "" {
		errs = append(errs, fmt.Errorf("collections.log must not be empty"))
	}

	if c.Quests.DailyCount < 0 {
		errs = append(errs, fmt.Errorf("quests.daily_count must be >= 0"))
	}
	if c.Quests.CooldownDays < 0 {
		errs = append(errs, fmt.Errorf("quests.cooldown_days must be >= 0"))
	}
	if _, err := time.LoadLocation(c.Quests.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("quests.timezone %q is not a known IANA zone", c.Quests.Timezone))
	}

	for _, s := range []struct{ key, expr string }{
		{"schedule.reset", c.Schedule.Reset},
		{"schedule.select", c.Schedule.Select},
		{"schedule.reconcile", c.Schedule.Reconcile},
	} {
		if s.expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(s.expr); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.key, err))
		}
	}

	if c.Supervisor.StateDir == "" {
		errs = append(errs, fmt.Errorf("supervisor.state_dir must not be empty"))
	}
	if c.Supervisor.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("supervisor.max_retries must be >= 0"))
	}
	if c.Supervisor.RetryBackoffSeconds < 0 {
		errs = append(errs, fmt.Errorf("supervisor.retry_backoff_seconds must be >= 0"))
	}

	if c.History.Retention < 0 {
		errs = append(errs, fmt.Errorf("history.retention must be >= 0 (0 = unlimited)"))
	}

	if c.TUI.AccentColor != "" && !hexColorRe.MatchString(c.TUI.AccentColor) {
		errs = append(errs, fmt.Errorf("tui.accent_color must be a hex color (e.g. \"#E8A33D\")"))
	}

	if c.Notifications.URL != "" && !isHTTPURL(c.Notifications.URL) {
		errs = append(errs, fmt.Errorf("notifications.url must be a valid http or https URL"))
	}

	return errors.Join(errs...)
}

func isHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// Defaults returns a Config with the stock schedule and quest rules. The
// collection IDs have no sensible default and must be filled in.
func Defaults() Config {
	return Config{
		Store: StoreConfig{
			BaseURL:        "https://api.notion.com/v1",
			APIVersion:     "2025-09-03",
			TokenEnv:       "NOTION_API_KEY",
			TimeoutSeconds: 30,
		},
		Quests: QuestsConfig{
			DailyCount:   5,
			CooldownDays: 3,
			Timezone:     "Europe/London",
			DefaultSkill: "General",
		},
		Schedule: ScheduleConfig{
			Reset:     "0 0 * * *",
			Select:    "0 9 * * *",
			Reconcile: "0 10-23 * * *",
		},
		Supervisor: SupervisorConfig{
			StateDir:            ".quest",
			MaxRetries:          2,
			RetryBackoffSeconds: 30,
		},
		History: HistoryConfig{
			Dir:       ".quest/logs",
			Retention: 30,
		},
		TUI: TUIConfig{
			AccentColor: DefaultAccentColor,
		},
		Notifications: NotificationsConfig{
			OnError:   true,
			OnSummary: false,
			OnGrant:   true,
		},
	}
}

// Load reads quest.toml from the given path. If path is empty, it walks up
// from the current working directory looking for quest.toml. A .env file
// beside the config is loaded into the environment first; variables that
// are already set win. Returns an error if the file contains unknown keys
// (likely typos).
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := findConfig()
		if err != nil {
			return nil, err
		}
		path = found
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}

	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s (possible typos?)", path, strings.Join(keys, ", "))
	}

	cfg.Dir = dir
	return &cfg, nil
}

func loadDotEnv(dir string) error {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err != nil {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("config: load %s: %w", envPath, err)
	}
	return nil
}

// findConfig walks up from the current directory looking for quest.toml.
func findConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("config: get working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("config: %s not found (searched up from %s)", FileName, dir)
		}
		dir = parent
	}
}

// Token returns the store token: the literal store.token if set, otherwise
// the value of the store.token_env environment variable.
func (c *Config) Token() (string, error) {
	if c.Store.Token != "" {
		return c.Store.Token, nil
	}
	if c.Store.TokenEnv != "" {
		if v := strings.TrimSpace(os.Getenv(c.Store.TokenEnv)); v != "" {
			return v, nil
		}
		return "", fmt.Errorf("%w (set store.token or $%s)", ErrNoToken, c.Store.TokenEnv)
	}
	return "", ErrNoToken
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Quests.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: quests.timezone: %w", err)
	}
	return loc, nil
}

// Timeout returns the store request timeout; zero means the client default.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Store.TimeoutSeconds) * time.Second
}

// Resolve returns p made absolute against the config directory.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// template is the quest.toml written by ScaffoldProject.
const template = `# quest.toml: daily quest automation configuration

[store]
base_url = "https://api.notion.com/v1"
api_version = "2025-09-03"
token_env = "NOTION_API_KEY"  # read from the environment or .env
timeout_seconds = 30

[collections]
# Notion data source IDs
tracker = ""  # today's quests
catalog = ""  # quest definitions
log = ""      # completion log

[quests]
daily_count = 5
cooldown_days = 3
timezone = "Europe/London"
default_skill = "General"

[schedule]
# standard cron expressions, evaluated in quests.timezone
reset = "0 0 * * *"
select = "0 9 * * *"
reconcile = "0 10-23 * * *"

[supervisor]
state_dir = ".quest"
max_retries = 2
retry_backoff_seconds = 30

[history]
dir = ".quest/logs"
retention = 30  # number of session logs to keep; 0 = unlimited

[tui]
accent_color = "#E8A33D"

[notifications]
url = ""           # ntfy.sh topic URL or any HTTP webhook (empty = disabled)
on_error = true    # notify when a phase fails
on_summary = false # notify after every phase
on_grant = true    # notify when XP is granted
`
