// Package config loads and validates mathmail YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-mathmail/internal/fileutil"
	"github.com/alnah/go-mathmail/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// AppName names the directory searched under os.UserConfigDir.
const AppName = "go-mathmail"

// Field length limits.
const (
	MaxSubjectLength  = 998  // RFC 5322 line limit
	MaxAddressLength  = 2048 // comma-separated list
	MaxURLLength      = 2048
	MaxPathLength     = 4096
	MaxNameLength     = 64
	MaxPackageCount   = 32
	MaxPrefixLength   = 64
	MaxPasswordLength = 512
	MaxStyleLength    = 64 << 10 // inline CSS
)

// Render defaults and bounds.
const (
	DefaultDPI        = 300
	MinDPI            = 50
	MaxDPI            = 2400
	DefaultTimeout    = 30 * time.Second
	MaxWorkers        = 64
	DefaultMathJaxURL = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-svg.js"
	DefaultCacheTTL   = 24 * time.Hour
	DefaultCacheAddr  = "localhost:6379"
	DefaultKeyPrefix  = "mathmail:render:"
)

// Allowed enum values.
const (
	EngineLatex   = "latex"
	EngineBrowser = "browser"

	FormatMIME = "mime"
	FormatRaw  = "raw"
	FormatHTML = "html"

	BodyText     = "text"
	BodyMarkdown = "markdown"
)

// Config holds all mathmail settings.
type Config struct {
	Message MessageConfig `yaml:"message"`
	Render  RenderConfig  `yaml:"render"`
	Output  OutputConfig  `yaml:"output"`
	Cache   CacheConfig   `yaml:"cache"`
	Assets  AssetsConfig  `yaml:"assets"`
}

// MessageConfig holds default message headers.
type MessageConfig struct {
	Subject string `yaml:"subject"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
}

// RenderConfig selects and tunes the expression renderer.
type RenderConfig struct {
	Engine  string        `yaml:"engine"`  // "latex" or "browser"
	DPI     int           `yaml:"dpi"`     // 0 = DefaultDPI
	Timeout string        `yaml:"timeout"` // per expression, Go duration
	Workers int           `yaml:"workers"` // 0 = automatic
	Latex   LatexConfig   `yaml:"latex"`
	Browser BrowserConfig `yaml:"browser"`
}

// LatexConfig configures the latex + dvipng toolchain.
type LatexConfig struct {
	Binary   string   `yaml:"binary"`   // empty = "latex" on PATH
	Dvipng   string   `yaml:"dvipng"`   // empty = "dvipng" on PATH
	Preamble string   `yaml:"preamble"` // asset name, empty = default
	Packages []string `yaml:"packages"`
}

// BrowserConfig configures the headless Chrome renderer.
type BrowserConfig struct {
	MathJaxURL string `yaml:"mathjaxURL"`
	Bin        string `yaml:"bin"` // empty = auto-detect or download
}

// OutputConfig selects the artifact and how the body is composed.
type OutputConfig struct {
	Format     string `yaml:"format"`     // "mime", "raw" or "html"
	Body       string `yaml:"body"`       // "text" or "markdown"
	Standalone bool   `yaml:"standalone"` // wrap HTML output in the document shell
	Style      string `yaml:"style"`      // style name, file path or CSS; empty = default
	Title      string `yaml:"title"`
	Normalize  bool   `yaml:"normalize"` // Unicode NFC before extraction
}

// CacheConfig enables the Redis render cache.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
	TTL      string `yaml:"ttl"` // Go duration, empty = DefaultCacheTTL
	Prefix   string `yaml:"prefix"`
}

// AssetsConfig points at a directory overriding the embedded assets.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // empty = embedded only
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Render: RenderConfig{
			Engine:  EngineLatex,
			DPI:     DefaultDPI,
			Timeout: DefaultTimeout.String(),
			Latex:   LatexConfig{Packages: []string{"amsmath", "amssymb"}},
			Browser: BrowserConfig{MathJaxURL: DefaultMathJaxURL},
		},
		Output: OutputConfig{
			Format: FormatRaw,
			Body:   BodyText,
		},
		Cache: CacheConfig{
			Addr:   DefaultCacheAddr,
			TTL:    DefaultCacheTTL.String(),
			Prefix: DefaultKeyPrefix,
		},
	}
}

// Validate checks field lengths, enums and ranges. Zero values are valid and
// mean "use the default".
func (c *Config) Validate() error {
	checks := []struct {
		field string
		value string
		max   int
	}{
		{"message.subject", c.Message.Subject, MaxSubjectLength},
		{"message.from", c.Message.From, MaxAddressLength},
		{"message.to", c.Message.To, MaxAddressLength},
		{"render.latex.binary", c.Render.Latex.Binary, MaxPathLength},
		{"render.latex.dvipng", c.Render.Latex.Dvipng, MaxPathLength},
		{"render.latex.preamble", c.Render.Latex.Preamble, MaxNameLength},
		{"render.browser.mathjaxURL", c.Render.Browser.MathJaxURL, MaxURLLength},
		{"render.browser.bin", c.Render.Browser.Bin, MaxPathLength},
		{"output.style", c.Output.Style, MaxStyleLength},
		{"output.title", c.Output.Title, MaxSubjectLength},
		{"cache.addr", c.Cache.Addr, MaxURLLength},
		{"cache.password", c.Cache.Password, MaxPasswordLength},
		{"cache.prefix", c.Cache.Prefix, MaxPrefixLength},
		{"assets.basePath", c.Assets.BasePath, MaxPathLength},
	}
	for _, chk := range checks {
		if err := validateFieldLength(chk.field, chk.value, chk.max); err != nil {
			return err
		}
	}

	if err := validateOneOf("render.engine", c.Render.Engine, EngineLatex, EngineBrowser); err != nil {
		return err
	}
	if err := validateOneOf("output.format", c.Output.Format, FormatMIME, FormatRaw, FormatHTML); err != nil {
		return err
	}
	if err := validateOneOf("output.body", c.Output.Body, BodyText, BodyMarkdown); err != nil {
		return err
	}

	if c.Render.DPI != 0 && (c.Render.DPI < MinDPI || c.Render.DPI > MaxDPI) {
		return fmt.Errorf("%w: render.dpi must be between %d and %d, got %d", ErrInvalidValue, MinDPI, MaxDPI, c.Render.DPI)
	}
	if c.Render.Workers < 0 || c.Render.Workers > MaxWorkers {
		return fmt.Errorf("%w: render.workers must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Render.Workers)
	}
	if len(c.Render.Latex.Packages) > MaxPackageCount {
		return fmt.Errorf("%w: render.latex.packages has %d entries (max %d)", ErrInvalidValue, len(c.Render.Latex.Packages), MaxPackageCount)
	}
	for i, pkg := range c.Render.Latex.Packages {
		if pkg == "" || strings.ContainsAny(pkg, "{}\\%\n\r ") {
			return fmt.Errorf("%w: render.latex.packages[%d] %q", ErrInvalidValue, i, pkg)
		}
	}
	if u := c.Render.Browser.MathJaxURL; u != "" && !fileutil.IsURL(u) {
		return fmt.Errorf("%w: render.browser.mathjaxURL must be an http(s) URL, got %q", ErrInvalidValue, u)
	}
	if _, err := c.RenderTimeout(); err != nil {
		return err
	}

	if c.Cache.DB < 0 {
		return fmt.Errorf("%w: cache.db must not be negative", ErrInvalidValue)
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	return nil
}

// RenderTimeout parses render.timeout, defaulting to DefaultTimeout.
func (c *Config) RenderTimeout() (time.Duration, error) {
	return parsePositiveDuration("render.timeout", c.Render.Timeout, DefaultTimeout)
}

// CacheTTL parses cache.ttl, defaulting to DefaultCacheTTL.
func (c *Config) CacheTTL() (time.Duration, error) {
	return parsePositiveDuration("cache.ttl", c.Cache.TTL, DefaultCacheTTL)
}

func parsePositiveDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidValue, field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidValue, field, value)
	}
	return d, nil
}

func validateOneOf(field, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: %q (must be one of %s)", ErrInvalidValue, field, value, strings.Join(allowed, ", "))
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// A value containing a path separator is read as a path; anything else is a
// name searched as name.yaml / name.yml in the current directory and then in
// os.UserConfigDir()/go-mathmail/. Fields absent from the file keep their
// DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg := DefaultConfig()
	if err := yamlutil.DecodeStrict(f, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// YAML renders the configuration, with the cache password masked.
func (c *Config) YAML() ([]byte, error) {
	masked := *c
	if masked.Cache.Password != "" {
		masked.Cache.Password = "********"
	}
	return yamlutil.Marshal(masked)
}

// resolveConfigPath searches for name.yaml and name.yml in the current
// directory, then in the user config directory.
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	tried := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		local := name + ext
		if fileutil.FileExists(local) {
			return local, nil
		}
		tried = append(tried, local)
	}

	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			p := filepath.Join(dir, AppName, name+ext)
			if fileutil.FileExists(p) {
				return p, nil
			}
			tried = append(tried, p)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
