package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-mathmail/internal/config"
)

// envPrefix namespaces every variable read by the CLI.
const envPrefix = "MATHMAIL_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string        // MATHMAIL_CONFIG: config file path
	Engine     string        // MATHMAIL_ENGINE: latex, browser
	Format     string        // MATHMAIL_FORMAT: raw, mime, html
	Timeout    time.Duration // MATHMAIL_TIMEOUT: per-expression timeout

	// Tier 2 - Message identity
	From    string // MATHMAIL_FROM: default sender
	To      string // MATHMAIL_TO: default recipients
	Subject string // MATHMAIL_SUBJECT: default subject

	// Tier 3 - Extended
	DPI           int    // MATHMAIL_DPI: image resolution
	Workers       int    // MATHMAIL_WORKERS: parallel renders
	Body          string // MATHMAIL_BODY: text, markdown
	Style         string // MATHMAIL_STYLE: CSS style name or path
	AssetPath     string // MATHMAIL_ASSET_PATH: asset override directory
	MathJaxURL    string // MATHMAIL_MATHJAX_URL: browser engine script
	Cache         *bool  // MATHMAIL_CACHE: enable the Redis cache
	CacheAddr     string // MATHMAIL_CACHE_ADDR: Redis address or URL
	CachePassword string // MATHMAIL_CACHE_PASSWORD: Redis password
	CacheTTL      string // MATHMAIL_CACHE_TTL: cache entry lifetime
}

// knownEnvVars lists valid MATHMAIL_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"MATHMAIL_CONFIG":  true,
	"MATHMAIL_ENGINE":  true,
	"MATHMAIL_FORMAT":  true,
	"MATHMAIL_TIMEOUT": true,
	// Tier 2 - Message identity
	"MATHMAIL_FROM":    true,
	"MATHMAIL_TO":      true,
	"MATHMAIL_SUBJECT": true,
	// Tier 3 - Extended
	"MATHMAIL_DPI":            true,
	"MATHMAIL_WORKERS":        true,
	"MATHMAIL_BODY":           true,
	"MATHMAIL_STYLE":          true,
	"MATHMAIL_ASSET_PATH":     true,
	"MATHMAIL_MATHJAX_URL":    true,
	"MATHMAIL_CACHE":          true,
	"MATHMAIL_CACHE_ADDR":     true,
	"MATHMAIL_CACHE_PASSWORD": true,
	"MATHMAIL_CACHE_TTL":      true,
	// Doctor only
	"MATHMAIL_CONTAINER": true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers, durations and booleans are ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		// Tier 1
		ConfigPath: getenv("MATHMAIL_CONFIG"),
		Engine:     getenv("MATHMAIL_ENGINE"),
		Format:     getenv("MATHMAIL_FORMAT"),
		// Tier 2
		From:    getenv("MATHMAIL_FROM"),
		To:      getenv("MATHMAIL_TO"),
		Subject: getenv("MATHMAIL_SUBJECT"),
		// Tier 3
		Body:          getenv("MATHMAIL_BODY"),
		Style:         getenv("MATHMAIL_STYLE"),
		AssetPath:     getenv("MATHMAIL_ASSET_PATH"),
		MathJaxURL:    getenv("MATHMAIL_MATHJAX_URL"),
		CacheAddr:     getenv("MATHMAIL_CACHE_ADDR"),
		CachePassword: getenv("MATHMAIL_CACHE_PASSWORD"),
		CacheTTL:      getenv("MATHMAIL_CACHE_TTL"),
	}

	if timeout := getenv("MATHMAIL_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if dpi := getenv("MATHMAIL_DPI"); dpi != "" {
		if v, err := strconv.Atoi(dpi); err == nil && v > 0 {
			cfg.DPI = v
		}
	}
	if workers := getenv("MATHMAIL_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}
	if enabled := getenv("MATHMAIL_CACHE"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			cfg.Cache = &b
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized MATHMAIL_* variables.
// Helps catch typos like MATHMAIL_ENGIN.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, env := range environ {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment values over the config file.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	// Tier 1
	if env.Engine != "" {
		cfg.Render.Engine = env.Engine
	}
	if env.Format != "" {
		cfg.Output.Format = env.Format
	}
	if env.Timeout > 0 {
		cfg.Render.Timeout = env.Timeout.String()
	}

	// Tier 2
	if env.From != "" {
		cfg.Message.From = env.From
	}
	if env.To != "" {
		cfg.Message.To = env.To
	}
	if env.Subject != "" {
		cfg.Message.Subject = env.Subject
	}

	// Tier 3
	if env.DPI > 0 {
		cfg.Render.DPI = env.DPI
	}
	if env.Workers > 0 {
		cfg.Render.Workers = env.Workers
	}
	if env.Body != "" {
		cfg.Output.Body = env.Body
	}
	if env.Style != "" {
		cfg.Output.Style = env.Style
	}
	if env.AssetPath != "" {
		cfg.Assets.BasePath = env.AssetPath
	}
	if env.MathJaxURL != "" {
		cfg.Render.Browser.MathJaxURL = env.MathJaxURL
	}
	if env.Cache != nil {
		cfg.Cache.Enabled = *env.Cache
	}
	if env.CacheAddr != "" {
		cfg.Cache.Addr = env.CacheAddr
	}
	if env.CachePassword != "" {
		cfg.Cache.Password = env.CachePassword
	}
	if env.CacheTTL != "" {
		cfg.Cache.TTL = env.CacheTTL
	}
}
