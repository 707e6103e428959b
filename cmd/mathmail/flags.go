package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// Sentinel errors for flag handling.
var (
	ErrConflictingFormats = errors.New("only one of --format, --raw and --html may be given")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// messageFlags holds message header flags.
type messageFlags struct {
	subject string
	from    string
	to      string
}

// renderFlags selects and tunes the renderer.
type renderFlags struct {
	engine     string
	dpi        int
	timeout    string
	workers    int
	latexBin   string
	dvipngBin  string
	packages   []string
	mathjaxURL string
	browserBin string
}

// outputFlags controls the artifact and where it goes.
type outputFlags struct {
	output     string
	format     string
	raw        bool // shorthand for --format mime
	html       bool // shorthand for --format html
	copy       bool
	body       string
	standalone bool
	style      string
	title      string
	normalize  bool
}

// cacheFlags configures the Redis render cache.
type cacheFlags struct {
	enabled bool
	addr    string
	ttl     string
}

// assetFlags holds the asset override directory.
type assetFlags struct {
	assetPath string
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common  commonFlags
	message messageFlags
	render  renderFlags
	out     outputFlags
	cache   cacheFlags
	assets  assetFlags

	// set records which flags appeared on the command line, so false and
	// zero values can override the config file.
	set map[string]bool
}

// changed reports whether the named flag was given explicitly.
func (f *convertFlags) changed(name string) bool {
	return f.set[name]
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log each render to stderr")
}

// addMessageFlags adds message header flags to a FlagSet.
func addMessageFlags(fs *flag.FlagSet, f *messageFlags) {
	fs.StringVarP(&f.subject, "subject", "s", "", "message subject")
	fs.StringVar(&f.from, "from", "", "sender address")
	fs.StringVar(&f.to, "to", "", "recipient addresses, comma-separated")
}

// addRenderFlags adds renderer flags to a FlagSet.
func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.StringVarP(&f.engine, "engine", "e", "", "renderer: latex, browser")
	fs.IntVar(&f.dpi, "dpi", 0, "image resolution (0 = config or 300)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-expression timeout (e.g., 30s, 1m)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel renders (0 = auto)")
	fs.StringVar(&f.latexBin, "latex", "", "latex executable")
	fs.StringVar(&f.dvipngBin, "dvipng", "", "dvipng executable")
	fs.StringSliceVar(&f.packages, "package", nil, "LaTeX package to load (repeatable)")
	fs.StringVar(&f.mathjaxURL, "mathjax-url", "", "MathJax script URL for the browser engine")
	fs.StringVar(&f.browserBin, "browser-bin", "", "Chrome executable for the browser engine")
}

// addOutputFlags adds artifact flags to a FlagSet.
func addOutputFlags(fs *flag.FlagSet, f *outputFlags) {
	fs.StringVarP(&f.output, "output", "o", "", "write to file instead of stdout")
	fs.StringVarP(&f.format, "format", "f", "", "artifact: raw, mime, html")
	fs.BoolVar(&f.raw, "raw", false, "print the MIME message instead of base64")
	fs.BoolVar(&f.html, "html", false, "print HTML with inline images")
	fs.BoolVar(&f.copy, "copy", false, "also copy the output to the clipboard")
	fs.StringVarP(&f.body, "body", "b", "", "body syntax: text, markdown")
	fs.BoolVar(&f.standalone, "standalone", false, "wrap --html output in a full document")
	fs.StringVar(&f.style, "style", "", "CSS style name, file path, or content")
	fs.StringVar(&f.title, "title", "", "document title (default: subject)")
	fs.BoolVar(&f.normalize, "normalize", false, "apply Unicode NFC before extraction")
}

// addCacheFlags adds render cache flags to a FlagSet.
func addCacheFlags(fs *flag.FlagSet, f *cacheFlags) {
	fs.BoolVar(&f.enabled, "cache", false, "cache rendered images in Redis")
	fs.StringVar(&f.addr, "cache-addr", "", "Redis address or redis:// URL")
	fs.StringVar(&f.ttl, "cache-ttl", "", "cache entry lifetime (e.g., 24h)")
}

// addAssetFlags adds asset flags to a FlagSet.
func addAssetFlags(fs *flag.FlagSet, f *assetFlags) {
	fs.StringVar(&f.assetPath, "asset-path", "", "directory overriding embedded styles, templates, preambles")
}

// newConvertFlagSet registers every convert flag into a new FlagSet.
// Shared by parsing and completion so both see the same flags.
func newConvertFlagSet(f *convertFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	addCommonFlags(fs, &f.common)
	addMessageFlags(fs, &f.message)
	addRenderFlags(fs, &f.render)
	addOutputFlags(fs, &f.out)
	addCacheFlags(fs, &f.cache)
	addAssetFlags(fs, &f.assets)
	return fs
}

// parseConvertFlags parses convert arguments and returns the flags and the
// positional arguments. flag.ErrHelp is returned for -h/--help.
func parseConvertFlags(args []string) (*convertFlags, []string, error) {
	f := &convertFlags{set: make(map[string]bool)}
	fs := newConvertFlagSet(f)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("parsing flags: %w", err)
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	if f.render.workers < 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, f.render.workers)
	}

	formats := 0
	for _, name := range []string{"format", "raw", "html"} {
		if f.changed(name) {
			formats++
		}
	}
	if formats > 1 {
		return nil, nil, ErrConflictingFormats
	}

	return f, fs.Args(), nil
}

// requestedFormat returns the format selected on the command line, or "".
func (f *convertFlags) requestedFormat() string {
	switch {
	case f.out.format != "":
		return f.out.format
	case f.out.raw:
		return "mime"
	case f.out.html:
		return "html"
	default:
		return ""
	}
}
