// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported driver names for BrowserConfig.Driver.
const (
	DriverCDP       = "cdp"
	DriverWebDriver = "webdriver"
	DriverHTMLDoc   = "htmldoc"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Walker  WalkerConfig  `mapstructure:"walker" yaml:"walker"`
	Runner  RunnerConfig  `mapstructure:"runner" yaml:"runner"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
}

type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig selects and configures the automation backend. A session is
// opened per scenario from these settings.
type BrowserConfig struct {
	// Driver is one of "cdp", "webdriver" or "htmldoc".
	Driver string `mapstructure:"driver" yaml:"driver"`
	// RemoteURL points at a hosted browser. For cdp it is a DevTools websocket
	// or http endpoint, for webdriver the hub URL. Empty means a local browser.
	RemoteURL         string         `mapstructure:"remote_url" yaml:"remote_url"`
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	Viewport          map[string]int `mapstructure:"viewport" yaml:"viewport"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// FixtureDir is the root of the static documents served by the htmldoc driver.
	FixtureDir string `mapstructure:"fixture_dir" yaml:"fixture_dir"`
}

// WalkerConfig holds the bounded wait policy shared by every step.
type WalkerConfig struct {
	WaitTimeout   time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	ScreenshotDir string        `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
}

type RunnerConfig struct {
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	Concurrency  int           `mapstructure:"concurrency" yaml:"concurrency"`
	FailFast     bool          `mapstructure:"fail_fast" yaml:"fail_fast"`
	SessionRate  float64       `mapstructure:"session_rate" yaml:"session_rate"`
	SessionBurst int           `mapstructure:"session_burst" yaml:"session_burst"`
	CloseTimeout time.Duration `mapstructure:"close_timeout" yaml:"close_timeout"`
}

type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// NewDefaultConfig creates a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "formwalk")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.driver", DriverCDP)
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.args", []string{"--no-sandbox"})
	v.SetDefault("browser.viewport", map[string]int{"width": 1366, "height": 900})
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.fixture_dir", "testdata/pages")

	// -- Walker --
	// The hosted forms can take a long time to render the next step.
	v.SetDefault("walker.wait_timeout", "50s")
	v.SetDefault("walker.poll_interval", "500ms")
	v.SetDefault("walker.screenshot_dir", "")

	// -- Runner --
	v.SetDefault("runner.base_url", "")
	v.SetDefault("runner.concurrency", 1)
	v.SetDefault("runner.fail_fast", false)
	v.SetDefault("runner.session_rate", 2.0)
	v.SetDefault("runner.session_burst", 1)
	v.SetDefault("runner.close_timeout", "10s")

	// -- Report --
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The remote endpoint is usually injected by CI rather than a config file.
	_ = v.BindEnv("browser.remote_url", "FORMWALK_BROWSER_REMOTE_URL", "FORMWALK_REMOTE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.Walker.Validate(); err != nil {
		return fmt.Errorf("walker configuration invalid: %w", err)
	}
	if err := c.Runner.Validate(); err != nil {
		return fmt.Errorf("runner configuration invalid: %w", err)
	}
	if err := c.Report.Validate(); err != nil {
		return fmt.Errorf("report configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	switch strings.ToLower(b.Driver) {
	case DriverCDP, DriverHTMLDoc:
	case DriverWebDriver:
		if b.RemoteURL == "" {
			return fmt.Errorf("browser.remote_url is required for the webdriver driver")
		}
	default:
		return fmt.Errorf("browser.driver must be one of cdp, webdriver, htmldoc (got %q)", b.Driver)
	}
	if b.NavigationTimeout < 0 {
		return fmt.Errorf("browser.navigation_timeout must not be negative")
	}
	return nil
}

// Validate checks the wait policy.
func (w *WalkerConfig) Validate() error {
	if w.WaitTimeout <= 0 {
		return fmt.Errorf("walker.wait_timeout must be a positive duration")
	}
	if w.PollInterval <= 0 {
		return fmt.Errorf("walker.poll_interval must be a positive duration")
	}
	if w.PollInterval > w.WaitTimeout {
		return fmt.Errorf("walker.poll_interval must not exceed walker.wait_timeout")
	}
	return nil
}

// Validate checks the runner settings.
func (r *RunnerConfig) Validate() error {
	if r.Concurrency <= 0 {
		return fmt.Errorf("runner.concurrency must be a positive integer")
	}
	if r.SessionRate < 0 {
		return fmt.Errorf("runner.session_rate must not be negative")
	}
	if r.SessionRate > 0 && r.SessionBurst <= 0 {
		return fmt.Errorf("runner.session_burst must be positive when session_rate is set")
	}
	if r.CloseTimeout <= 0 {
		return fmt.Errorf("runner.close_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the report settings.
func (r *ReportConfig) Validate() error {
	switch r.Format {
	case "text", "json", "junit", "sarif":
		return nil
	default:
		return fmt.Errorf("report.format must be one of text, json, junit, sarif (got %q)", r.Format)
	}
}
