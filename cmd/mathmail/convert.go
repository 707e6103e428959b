package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	flag "github.com/spf13/pflag"

	mathmail "github.com/alnah/go-mathmail"
	"github.com/alnah/go-mathmail/internal/cache"
	"github.com/alnah/go-mathmail/internal/config"
	"github.com/alnah/go-mathmail/internal/fileutil"
	"github.com/alnah/go-mathmail/internal/hints"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput       = errors.New("no input provided")
	ErrReadInput     = errors.New("failed to read input")
	ErrInputTooLarge = errors.New("input too large")
	ErrWriteOutput   = errors.New("failed to write output file")
)

const (
	filePermissions  = 0o644 // rw-r--r--: owner read+write, others read
	maxInputSize     = 10 << 20
	cachePingTimeout = 2 * time.Second
)

// Converter is the interface for the conversion service.
type Converter interface {
	Convert(ctx context.Context, input mathmail.Input) (*mathmail.Result, error)
	Close() error
}

// Compile-time interface implementation check.
var _ Converter = (*mathmail.Converter)(nil)

// runConvertCmd parses convert flags, runs the conversion and maps the
// outcome to an exit code.
func runConvertCmd(ctx context.Context, args []string, env *Environment) int {
	flags, positional, err := parseConvertFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		printConvertUsage(env.Stdout)
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		fmt.Fprintln(env.Stderr, "Run 'mathmail help convert' for usage.")
		return ExitUsage
	}

	if err := runConvert(ctx, positional, flags, env); err != nil {
		if errors.Is(err, ErrNoInput) {
			fmt.Fprintln(env.Stderr, "No input provided. Pass text as an argument or pipe it on stdin.")
			return ExitGeneral
		}
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// runConvert orchestrates the conversion process.
func runConvert(ctx context.Context, positional []string, flags *convertFlags, env *Environment) error {
	logger := newLogger(env.Stderr, flags.common.verbose, flags.common.quiet)
	if !flags.common.quiet {
		warnUnknownEnvVars(env.Stderr, env.environ())
	}

	cfg, err := loadConfig(flags.common.config, env)
	if err != nil {
		return err
	}
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	format, err := mathmail.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	text, err := readInput(positional, env.Stdin)
	if err != nil {
		return err
	}

	conv, cleanup, err := newConverter(ctx, cfg, env, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	start := time.Now()
	result, err := conv.Convert(ctx, mathmail.Input{
		Text:    text,
		Format:  format,
		Subject: cfg.Message.Subject,
		From:    cfg.Message.From,
		To:      cfg.Message.To,
	})
	if err != nil {
		return err
	}
	logger.Debug("conversion complete",
		"expressions", len(result.Spans),
		"format", cfg.Output.Format,
		"duration", time.Since(start).Round(time.Millisecond))

	return writeOutput(ctx, result.Bytes(), flags, env)
}

// mergeFlags applies explicitly given CLI flags over cfg (CLI wins).
func mergeFlags(f *convertFlags, cfg *config.Config) {
	// Message
	if f.message.subject != "" {
		cfg.Message.Subject = f.message.subject
	}
	if f.message.from != "" {
		cfg.Message.From = f.message.from
	}
	if f.message.to != "" {
		cfg.Message.To = f.message.to
	}

	// Render
	if f.render.engine != "" {
		cfg.Render.Engine = f.render.engine
	}
	if f.render.dpi != 0 {
		cfg.Render.DPI = f.render.dpi
	}
	if f.render.timeout != "" {
		cfg.Render.Timeout = f.render.timeout
	}
	if f.render.workers > 0 {
		cfg.Render.Workers = f.render.workers
	}
	if f.render.latexBin != "" {
		cfg.Render.Latex.Binary = f.render.latexBin
	}
	if f.render.dvipngBin != "" {
		cfg.Render.Latex.Dvipng = f.render.dvipngBin
	}
	if len(f.render.packages) > 0 {
		cfg.Render.Latex.Packages = f.render.packages
	}
	if f.render.mathjaxURL != "" {
		cfg.Render.Browser.MathJaxURL = f.render.mathjaxURL
	}
	if f.render.browserBin != "" {
		cfg.Render.Browser.Bin = f.render.browserBin
	}

	// Output
	if format := f.requestedFormat(); format != "" {
		cfg.Output.Format = format
	}
	if f.out.body != "" {
		cfg.Output.Body = f.out.body
	}
	if f.changed("standalone") {
		cfg.Output.Standalone = f.out.standalone
	}
	if f.out.style != "" {
		cfg.Output.Style = f.out.style
	}
	if f.out.title != "" {
		cfg.Output.Title = f.out.title
	}
	if f.changed("normalize") {
		cfg.Output.Normalize = f.out.normalize
	}

	// Cache
	if f.changed("cache") {
		cfg.Cache.Enabled = f.cache.enabled
	}
	if f.cache.addr != "" {
		cfg.Cache.Addr = f.cache.addr
	}
	if f.cache.ttl != "" {
		cfg.Cache.TTL = f.cache.ttl
	}

	// Assets
	if f.assets.assetPath != "" {
		cfg.Assets.BasePath = f.assets.assetPath
	}
}

// readInput joins positional arguments, or reads stdin when there are none
// or the only argument is "-". An interactive terminal is not read.
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		text := strings.Join(args, " ")
		if strings.TrimSpace(text) == "" {
			return "", ErrNoInput
		}
		return text, nil
	}

	if stdin == nil || isTerminal(stdin) {
		return "", ErrNoInput
	}

	data, err := io.ReadAll(io.LimitReader(stdin, maxInputSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadInput, err)
	}
	if len(data) > maxInputSize {
		return "", fmt.Errorf("%w: more than %d bytes", ErrInputTooLarge, maxInputSize)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: input is not valid UTF-8", ErrReadInput)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", ErrNoInput
	}
	return string(data), nil
}

// isTerminal reports whether r is an interactive character device.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// newConverter builds a Converter for cfg. The returned cleanup stops the
// renderer and closes the cache connection.
func newConverter(ctx context.Context, cfg *config.Config, env *Environment, logger *slog.Logger) (Converter, func(), error) {
	timeout, err := cfg.RenderTimeout()
	if err != nil {
		return nil, nil, err
	}
	body, err := mathmail.ParseBodyFormat(cfg.Output.Body)
	if err != nil {
		return nil, nil, err
	}

	build := env.NewRenderer
	if build == nil {
		build = buildRenderer
	}
	renderer, err := build(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	renderer, closeCache := wrapCache(ctx, renderer, cfg, env, logger)

	dpi := cfg.Render.DPI
	if dpi <= 0 {
		dpi = mathmail.DefaultDPI
	}

	conv, err := mathmail.NewConverter(
		mathmail.WithRenderer(renderer),
		mathmail.WithDPI(dpi),
		mathmail.WithTimeout(timeout),
		mathmail.WithWorkers(cfg.Render.Workers),
		mathmail.WithLogger(logger),
		mathmail.WithClock(env.now),
		mathmail.WithBodyFormat(body),
		mathmail.WithStyle(cfg.Output.Style),
		mathmail.WithAssetPath(cfg.Assets.BasePath),
		mathmail.WithTitle(cfg.Output.Title),
		mathmail.WithStandaloneHTML(cfg.Output.Standalone),
		mathmail.WithNormalize(cfg.Output.Normalize),
	)
	if err != nil {
		closeCache()
		return nil, nil, err
	}

	return conv, func() {
		if err := conv.Close(); err != nil {
			logger.Warn("closing renderer", "error", err)
		}
		closeCache()
	}, nil
}

// buildRenderer creates the renderer selected by render.engine.
func buildRenderer(cfg *config.Config, logger *slog.Logger) (mathmail.Renderer, error) {
	switch cfg.Render.Engine {
	case config.EngineBrowser:
		timeout, err := cfg.RenderTimeout()
		if err != nil {
			return nil, err
		}
		return mathmail.NewBrowserRenderer(mathmail.BrowserOptions{
			MathJaxURL: cfg.Render.Browser.MathJaxURL,
			Binary:     cfg.Render.Browser.Bin,
			Timeout:    timeout,
			Logger:     logger,
		})
	default:
		loader, err := mathmail.NewAssetLoader(cfg.Assets.BasePath)
		if err != nil {
			return nil, err
		}
		name := cfg.Render.Latex.Preamble
		if name == "" {
			name = mathmail.DefaultPreamble
		}
		preamble, err := loader.LoadPreamble(name)
		if err != nil {
			return nil, fmt.Errorf("loading preamble %q: %w", name, err)
		}
		r, err := mathmail.NewLatexRenderer(mathmail.LatexOptions{
			LatexBinary:  cfg.Render.Latex.Binary,
			DvipngBinary: cfg.Render.Latex.Dvipng,
			Packages:     cfg.Render.Latex.Packages,
			Preamble:     preamble,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		if c, ok := r.(interface{ Check() error }); ok {
			if err := c.Check(); err != nil {
				logger.Warn("latex toolchain incomplete, rendering will fail", "error", err)
			}
		}
		return r, nil
	}
}

// wrapCache puts the Redis render cache in front of r when enabled.
// An unreachable Redis disables the cache with a warning instead of failing.
func wrapCache(ctx context.Context, r mathmail.Renderer, cfg *config.Config, env *Environment, logger *slog.Logger) (mathmail.Renderer, func()) {
	noop := func() {}
	if !cfg.Cache.Enabled {
		return r, noop
	}

	ttl, err := cfg.CacheTTL()
	if err != nil {
		logger.Warn("render cache disabled", "error", err)
		return r, noop
	}
	client, err := cache.NewClient(cache.ClientOptions{
		Addr:     cfg.Cache.Addr,
		DB:       cfg.Cache.DB,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		logger.Warn("render cache disabled", "error", err)
		return r, noop
	}

	pingCtx, cancel := context.WithTimeout(ctx, cachePingTimeout)
	defer cancel()
	if err := cache.Ping(pingCtx, client); err != nil {
		_ = client.Close()
		logger.Warn("render cache disabled", "addr", cfg.Cache.Addr, "error", err)
		fmt.Fprintf(env.Stderr, "warning: render cache unavailable%s\n", hints.ForRedisUnreachable(cfg.Cache.Addr))
		return r, noop
	}

	opts := []cache.Option{
		cache.WithPrefix(cfg.Cache.Prefix),
		cache.WithTTL(ttl),
		cache.WithNamespace(cacheNamespace(cfg)),
		cache.WithLogger(logger),
	}
	if timeout, err := cfg.RenderTimeout(); err == nil {
		opts = append(opts, cache.WithRenderTimeout(timeout))
	}
	rc := cache.New(client, r, opts...)
	logger.Debug("render cache enabled", "addr", cfg.Cache.Addr, "ttl", ttl)
	return rc, func() { _ = client.Close() }
}

// cacheNamespace identifies renderer settings that change the image for the
// same expression and DPI.
func cacheNamespace(cfg *config.Config) string {
	switch cfg.Render.Engine {
	case config.EngineBrowser:
		return config.EngineBrowser + "|" + cfg.Render.Browser.MathJaxURL
	default:
		return config.EngineLatex + "|" + cfg.Render.Latex.Preamble + "|" + strings.Join(cfg.Render.Latex.Packages, ",")
	}
}

// writeOutput writes data to --output or stdout, then copies it to the
// clipboard if asked. A clipboard failure only warns.
func writeOutput(ctx context.Context, data []byte, f *convertFlags, env *Environment) error {
	if f.out.output != "" {
		if err := fileutil.WriteFileAtomic(f.out.output, data, filePermissions); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}
		if !f.common.quiet {
			fmt.Fprintf(env.Stdout, "Output written to %s\n", f.out.output)
		}
	} else {
		if _, err := env.Stdout.Write(data); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		if len(data) > 0 && data[len(data)-1] != '\n' {
			_, _ = io.WriteString(env.Stdout, "\n")
		}
	}

	if !f.out.copy {
		return nil
	}
	if env.Clipboard == nil {
		fmt.Fprintln(env.Stderr, "warning: clipboard not available")
		return nil
	}
	if err := env.Clipboard.Write(ctx, string(data)); err != nil {
		fmt.Fprintf(env.Stderr, "warning: could not copy to clipboard: %v\n", err)
		return nil
	}
	if !f.common.quiet {
		fmt.Fprintln(env.Stderr, "Copied to clipboard")
	}
	return nil
}

// newLogger returns a text logger on w. Verbose shows debug records, quiet
// only errors.
func newLogger(w io.Writer, verbose, quiet bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// hintFor returns an actionable hint for well-known failures, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, mathmail.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, mathmail.ErrRendererUnavailable) && errors.Is(err, mathmail.ErrDvipng):
		return hints.ForDvipngMissing()
	case errors.Is(err, mathmail.ErrRendererUnavailable):
		return hints.ForLatexMissing()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, mathmail.ErrCompile):
		return hints.ForLatexCompile()
	case errors.Is(err, mathmail.ErrInvalidAddress):
		return hints.ForInvalidAddress()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	case errors.Is(err, ErrWriteOutput):
		return hints.ForOutputDirectory()
	default:
		return ""
	}
}
