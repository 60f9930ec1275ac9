package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/tcsa/internal/automation"
	"github.com/harrison/tcsa/internal/diagnostics"
	"github.com/harrison/tcsa/internal/version"
	"gopkg.in/yaml.v3"
)

// Automation backends
const (
	BackendDTE    = "dte"
	BackendReplay = "replay"
)

// Report formats
const (
	ReportYAML     = "yaml"
	ReportMarkdown = "markdown"
	ReportHTML     = "html"
)

// AutomationConfig selects and tunes the build automation backend
type AutomationConfig struct {
	// Backend is "dte" (COM automation, Windows) or "replay" (diagnostics file)
	Backend string `yaml:"backend"`

	// ProgID overrides the COM automation server, e.g. TcXaeShell.DTE.15.0
	ProgID string `yaml:"prog_id"`

	// ReplayFile is the YAML diagnostics file served by the replay backend
	ReplayFile string `yaml:"replay_file"`

	// RetryAttempts bounds retries of calls rejected by a busy IDE
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryDelay is the pause between such retries
	RetryDelay time.Duration `yaml:"retry_delay"`

	// SettleDelay is waited after the build before the error list is read
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// ReportConfig controls the optional run summary report
type ReportConfig struct {
	// Path of the report file; empty disables the report
	Path string `yaml:"path"`

	// Format is yaml, markdown or html
	Format string `yaml:"format"`
}

// Config represents tcsa configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs are written; empty disables file logging
	LogDir string `yaml:"log_dir"`

	// Timeout bounds the whole run (0 = no timeout)
	Timeout time.Duration `yaml:"timeout"`

	// TagPrefix selects static-analysis diagnostics by description prefix
	TagPrefix string `yaml:"tag_prefix"`

	// MinimumVersion is the oldest supported TwinCAT version
	MinimumVersion string `yaml:"minimum_version"`

	// Lock holds an exclusive per-solution lock for the duration of the run
	Lock bool `yaml:"lock"`

	Automation AutomationConfig `yaml:"automation"`
	Report     ReportConfig     `yaml:"report"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	retry := automation.DefaultRetryPolicy()
	return &Config{
		LogLevel:       "info",
		LogDir:         "",
		Timeout:        time.Hour,
		TagPrefix:      diagnostics.DefaultTagPrefix,
		MinimumVersion: version.MinimumTwinCAT.String(),
		Lock:           true,
		Automation: AutomationConfig{
			Backend:       BackendDTE,
			RetryAttempts: retry.Attempts,
			RetryDelay:    retry.Delay,
		},
		Report: ReportConfig{
			Format: ReportYAML,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Pointers distinguish "absent" from an explicit zero value
	type yamlAutomation struct {
		Backend       *string `yaml:"backend"`
		ProgID        *string `yaml:"prog_id"`
		ReplayFile    *string `yaml:"replay_file"`
		RetryAttempts *int    `yaml:"retry_attempts"`
		RetryDelay    *string `yaml:"retry_delay"`
		SettleDelay   *string `yaml:"settle_delay"`
	}
	type yamlReport struct {
		Path   *string `yaml:"path"`
		Format *string `yaml:"format"`
	}
	type yamlConfig struct {
		LogLevel       *string        `yaml:"log_level"`
		LogDir         *string        `yaml:"log_dir"`
		Timeout        *string        `yaml:"timeout"`
		TagPrefix      *string        `yaml:"tag_prefix"`
		MinimumVersion *string        `yaml:"minimum_version"`
		Lock           *bool          `yaml:"lock"`
		Automation     yamlAutomation `yaml:"automation"`
		Report         yamlReport     `yaml:"report"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&cfg.LogLevel, yamlCfg.LogLevel)
	setString(&cfg.LogDir, yamlCfg.LogDir)
	setString(&cfg.TagPrefix, yamlCfg.TagPrefix)
	setString(&cfg.MinimumVersion, yamlCfg.MinimumVersion)
	if yamlCfg.Lock != nil {
		cfg.Lock = *yamlCfg.Lock
	}
	if err := setDuration(&cfg.Timeout, "timeout", yamlCfg.Timeout); err != nil {
		return nil, err
	}

	a := yamlCfg.Automation
	setString(&cfg.Automation.Backend, a.Backend)
	setString(&cfg.Automation.ProgID, a.ProgID)
	setString(&cfg.Automation.ReplayFile, a.ReplayFile)
	if a.RetryAttempts != nil {
		cfg.Automation.RetryAttempts = *a.RetryAttempts
	}
	if err := setDuration(&cfg.Automation.RetryDelay, "automation.retry_delay", a.RetryDelay); err != nil {
		return nil, err
	}
	if err := setDuration(&cfg.Automation.SettleDelay, "automation.settle_delay", a.SettleDelay); err != nil {
		return nil, err
	}

	setString(&cfg.Report.Path, yamlCfg.Report.Path)
	setString(&cfg.Report.Format, yamlCfg.Report.Format)

	// Relative replay and report paths are taken relative to the config file
	base := filepath.Dir(path)
	cfg.Automation.ReplayFile = resolveRelative(base, cfg.Automation.ReplayFile, a.ReplayFile != nil)
	cfg.Report.Path = resolveRelative(base, cfg.Report.Path, yamlCfg.Report.Path != nil)

	return cfg, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, key string, src *string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("invalid %s format %q: %w", key, *src, err)
	}
	*dst = d
	return nil
}

func resolveRelative(base, path string, fromFile bool) string {
	if !fromFile || path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// FlagOverrides carries CLI flag values; nil fields leave the configuration untouched
type FlagOverrides struct {
	LogLevel     *string
	LogDir       *string
	Timeout      *time.Duration
	TagPrefix    *string
	Lock         *bool
	Backend      *string
	ProgID       *string
	ReplayFile   *string
	ReportPath   *string
	ReportFormat *string
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(flags FlagOverrides) {
	setString(&c.LogLevel, flags.LogLevel)
	setString(&c.LogDir, flags.LogDir)
	if flags.Timeout != nil {
		c.Timeout = *flags.Timeout
	}
	setString(&c.TagPrefix, flags.TagPrefix)
	if flags.Lock != nil {
		c.Lock = *flags.Lock
	}
	setString(&c.Automation.Backend, flags.Backend)
	setString(&c.Automation.ProgID, flags.ProgID)
	setString(&c.Automation.ReplayFile, flags.ReplayFile)
	setString(&c.Report.Path, flags.ReportPath)
	setString(&c.Report.Format, flags.ReportFormat)
}

// Minimum parses MinimumVersion
func (c *Config) Minimum() (version.Version, error) {
	v, err := version.Parse(c.MinimumVersion)
	if err != nil {
		return version.Version{}, fmt.Errorf("invalid minimum_version: %w", err)
	}
	return v, nil
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	if strings.TrimSpace(c.TagPrefix) == "" {
		return fmt.Errorf("tag_prefix cannot be empty")
	}

	if _, err := c.Minimum(); err != nil {
		return err
	}

	switch c.Automation.Backend {
	case BackendDTE:
	case BackendReplay:
		if c.Automation.ReplayFile == "" {
			return fmt.Errorf("automation.replay_file is required for the replay backend")
		}
	default:
		return fmt.Errorf("invalid automation.backend %q, must be one of: %s, %s", c.Automation.Backend, BackendDTE, BackendReplay)
	}
	if c.Automation.RetryAttempts < 1 {
		return fmt.Errorf("automation.retry_attempts must be >= 1, got %d", c.Automation.RetryAttempts)
	}
	if c.Automation.RetryDelay < 0 {
		return fmt.Errorf("automation.retry_delay must be >= 0, got %v", c.Automation.RetryDelay)
	}
	if c.Automation.SettleDelay < 0 {
		return fmt.Errorf("automation.settle_delay must be >= 0, got %v", c.Automation.SettleDelay)
	}

	switch c.Report.Format {
	case ReportYAML, ReportMarkdown, ReportHTML:
	default:
		return fmt.Errorf("invalid report.format %q, must be one of: %s, %s, %s", c.Report.Format, ReportYAML, ReportMarkdown, ReportHTML)
	}

	return nil
}
