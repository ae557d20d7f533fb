// Package config holds the configuration of an edition fetch run.
//
// A Config is built once at startup by Load and handed to every component.
// Non-secret settings come from defaults overridden by an optional YAML file;
// secrets (upload URL, credentials, session token) are only ever read from the
// environment, and only at the point where a code path needs them.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Config represents the configuration for one fetch run
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Auth     AuthConfig     `yaml:"auth"`
	Browser  BrowserConfig  `yaml:"browser"`
	Download DownloadConfig `yaml:"download"`
	Delays   Delays         `yaml:"delays"`
	Login    LoginConfig    `yaml:"login"`
	Decoy    DecoyConfig    `yaml:"decoy"`
	Upload   UploadConfig   `yaml:"upload"`
	Logging  LoggingConfig  `yaml:"logging"`

	env Lookup
}

// SiteConfig describes the target site: URLs, cookie and the visible texts
// and selectors the fetcher looks for.
type SiteConfig struct {
	EditionURL         string `yaml:"edition_url"`
	HomeURL            string `yaml:"home_url"`
	CookieName         string `yaml:"cookie_name"`
	CookieDomain       string `yaml:"cookie_domain"`
	LoginPathMarker    string `yaml:"login_path_marker"`
	PostLoginSelector  string `yaml:"post_login_selector"`
	CurrentEditionText string `yaml:"current_edition_text"`
	DownloadText       string `yaml:"download_text"`
	PendingText        string `yaml:"pending_text"`
	UsernameSelector   string `yaml:"username_selector"`
	PasswordSelector   string `yaml:"password_selector"`
	SubmitSelector     string `yaml:"submit_selector"`
	ChallengeSelector  string `yaml:"challenge_selector"`
	ArticleSelector    string `yaml:"article_selector"`
}

// AuthMode selects how the browser session is established
type AuthMode string

const (
	// AuthAuto uses the session token when present, credentials otherwise
	AuthAuto AuthMode = "auto"
	// AuthToken injects the session token as a cookie
	AuthToken AuthMode = "token"
	// AuthLogin fills in the login form
	AuthLogin AuthMode = "login"
)

// AuthConfig configures session establishment
type AuthConfig struct {
	Mode AuthMode `yaml:"mode"`
}

// BrowserConfig configures the automated browser
type BrowserConfig struct {
	Engine         string `yaml:"engine"`
	Headless       bool   `yaml:"headless"`
	UserAgent      string `yaml:"user_agent"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
	Install        bool   `yaml:"install"`
}

// DownloadConfig configures the download directory and completion polling
type DownloadConfig struct {
	// Dir is created if missing; empty means a fresh temporary directory
	Dir             string        `yaml:"dir"`
	PartialSuffixes []string      `yaml:"partial_suffixes"`
	Pattern         string        `yaml:"pattern"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	// Timeout bounds completion polling after the download was triggered
	Timeout         time.Duration `yaml:"timeout"`
}

// Delays are the named timeout tiers shared by explicit waits and polling.
type Delays struct {
	Small  time.Duration `yaml:"small"`
	Medium time.Duration `yaml:"medium"`
	Large  time.Duration `yaml:"large"`
	XLarge time.Duration `yaml:"xlarge"`
}

// LoginConfig bounds the interactive login
type LoginConfig struct {
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DecoyConfig configures the browsing done before an interactive login
type DecoyConfig struct {
	Enabled  bool     `yaml:"enabled"`
	MinSites int      `yaml:"min_sites"`
	MaxSites int      `yaml:"max_sites"`
	Sites    []string `yaml:"sites"`
}

// UploadConfig configures the upload handoff
type UploadConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity"`
	// File additionally writes the log to a per-run file
	File bool `yaml:"file"`
}

// DefaultDelays returns the standard timeout tiers.
func DefaultDelays() Delays {
	return Delays{
		Small:  3 * time.Second,
		Medium: 10 * time.Second,
		Large:  30 * time.Second,
		XLarge: 200 * time.Second,
	}
}

// DefaultSites is the pool the decoy browsing samples from.
var DefaultSites = []string{
	"https://www.wikipedia.org",
	"https://www.bbc.com/news",
	"https://www.reuters.com",
	"https://www.dw.com",
	"https://www.spiegel.de",
	"https://www.tagesschau.de",
	"https://www.sueddeutsche.de",
	"https://www.faz.net",
	"https://www.google.com",
	"https://www.youtube.com",
}

// Default returns a configuration for the ZEIT e-paper with all defaults
// applied. Secrets are looked up in the process environment.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			EditionURL:         "https://epaper.zeit.de/abo/diezeit",
			HomeURL:            "https://www.zeit.de",
			CookieName:         "zeit_sso_201501",
			CookieDomain:       ".zeit.de",
			LoginPathMarker:    "anmelden",
			PostLoginSelector:  ".page-section-header",
			CurrentEditionText: "ZUR AKTUELLEN AUSGABE",
			DownloadText:       "EPUB FÜR E-READER LADEN",
			PendingText:        "EPUB FOLGT IN KÜRZE",
			UsernameSelector:   "#username",
			PasswordSelector:   "#password",
			SubmitSelector:     "#kc-login",
			ChallengeSelector:  ".frc-captcha",
			ArticleSelector:    "a[href*='/zeit/']",
		},
		Auth: AuthConfig{Mode: AuthAuto},
		Browser: BrowserConfig{
			Engine:         "firefox",
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 720,
			Install:        true,
		},
		Download: DownloadConfig{
			PartialSuffixes: []string{".part", ".crdownload"},
			Pattern:         "*.epub",
			PollInterval:    2 * time.Second,
			Timeout:         30 * time.Second,
		},
		Delays: DefaultDelays(),
		Login: LoginConfig{
			ReadyTimeout: 60 * time.Second,
			SettleDelay:  60 * time.Second,
			PollInterval: time.Second,
		},
		Decoy: DecoyConfig{
			Enabled:  true,
			MinSites: 2,
			MaxSites: 10,
			Sites:    append([]string(nil), DefaultSites...),
		},
		Upload:  UploadConfig{Timeout: 2 * time.Minute},
		Logging: LoggingConfig{Verbosity: "normal"},
		env:     os.LookupEnv,
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment resolved through env. A nil env
// uses the process environment.
func Load(path string, env Lookup) (*Config, error) {
	cfg := Default()
	if env != nil {
		cfg.env = env
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// WithEnv returns a copy of the configuration resolving secrets through env.
func (c *Config) WithEnv(env Lookup) *Config {
	clone := *c
	clone.env = env
	return &clone
}

var validEngines = map[string]bool{
	"chromium": true,
	"firefox":  true,
	"webkit":   true,
}

var validVerbosity = map[string]bool{
	"quiet":   true,
	"normal":  true,
	"verbose": true,
	"debug":   true,
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Site.EditionURL == "" {
		return errors.New("site.edition_url is required")
	}
	if c.Site.CookieName == "" {
		return errors.New("site.cookie_name is required")
	}
	if c.Site.CurrentEditionText == "" || c.Site.DownloadText == "" {
		return errors.New("site.current_edition_text and site.download_text are required")
	}

	switch c.Auth.Mode {
	case AuthAuto, AuthToken, AuthLogin:
	default:
		return fmt.Errorf("invalid auth mode: %s (must be 'auto', 'token' or 'login')", c.Auth.Mode)
	}

	if !validEngines[c.Browser.Engine] {
		return fmt.Errorf("invalid browser engine: %s (must be 'chromium', 'firefox' or 'webkit')", c.Browser.Engine)
	}
	if c.Browser.ViewportWidth < 0 || c.Browser.ViewportHeight < 0 {
		return errors.New("viewport dimensions cannot be negative")
	}

	if c.Download.Pattern != "" {
		if _, err := glob.Compile(c.Download.Pattern); err != nil {
			return fmt.Errorf("invalid download pattern %q: %w", c.Download.Pattern, err)
		}
	}

	durations := map[string]time.Duration{
		"download.poll_interval": c.Download.PollInterval,
		"download.timeout":       c.Download.Timeout,
		"delays.small":           c.Delays.Small,
		"delays.medium":          c.Delays.Medium,
		"delays.large":           c.Delays.Large,
		"delays.xlarge":          c.Delays.XLarge,
		"login.ready_timeout":    c.Login.ReadyTimeout,
		"login.settle_delay":     c.Login.SettleDelay,
		"login.poll_interval":    c.Login.PollInterval,
		"upload.timeout":         c.Upload.Timeout,
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}

	if c.Decoy.MinSites < 0 || c.Decoy.MaxSites < 0 {
		return errors.New("decoy site counts cannot be negative")
	}
	if c.Decoy.MinSites > c.Decoy.MaxSites {
		return fmt.Errorf("decoy.min_sites (%d) exceeds decoy.max_sites (%d)", c.Decoy.MinSites, c.Decoy.MaxSites)
	}

	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	if !validVerbosity[c.Logging.Verbosity] {
		return fmt.Errorf("invalid verbosity: %s (must be 'quiet', 'normal', 'verbose' or 'debug')", c.Logging.Verbosity)
	}

	return nil
}
