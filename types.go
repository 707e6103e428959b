package mathmail

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alnah/go-mathmail/internal/pipeline"
)

// Format selects the artifact Convert produces.
type Format = pipeline.Format

// Artifact formats.
const (
	// FormatMIME is a serialized multipart/related message with images
	// attached and referenced by Content-ID.
	FormatMIME = pipeline.FormatMIME

	// FormatRaw is FormatMIME as one URL-safe base64 string, the shape
	// mail submission APIs accept.
	FormatRaw = pipeline.FormatRaw

	// FormatHTML is HTML with images inlined as data: URIs.
	FormatHTML = pipeline.FormatHTML
)

// ParseFormat parses "mime", "raw" or "html", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mime":
		return FormatMIME, nil
	case "raw":
		return FormatRaw, nil
	case "html":
		return FormatHTML, nil
	default:
		return 0, fmt.Errorf("%w: %q (must be mime, raw, or html)", ErrInvalidFormat, s)
	}
}

// BodyFormat selects how the text around expressions becomes HTML.
type BodyFormat int

const (
	// BodyText escapes the text and turns line breaks into <br>.
	BodyText BodyFormat = iota
	// BodyMarkdown renders the text as GitHub-flavored Markdown.
	BodyMarkdown
)

// String implements fmt.Stringer.
func (b BodyFormat) String() string {
	switch b {
	case BodyText:
		return "text"
	case BodyMarkdown:
		return "markdown"
	default:
		return fmt.Sprintf("BodyFormat(%d)", int(b))
	}
}

// ParseBodyFormat parses "text" or "markdown", case-insensitively.
func ParseBodyFormat(s string) (BodyFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return BodyText, nil
	case "markdown", "md":
		return BodyMarkdown, nil
	default:
		return 0, fmt.Errorf("%w: %q (must be text or markdown)", ErrInvalidBodyFormat, s)
	}
}

// Input is one text to convert.
type Input struct {
	Text   string // plain text with embedded LaTeX math
	Format Format

	// Message headers. Empty fields are omitted from the message.
	// Ignored for FormatHTML.
	Subject string
	From    string
	To      string
}

// Result holds the assembled artifact.
type Result struct {
	Format    Format
	HTML      string // composed markup; for message formats, the text/html part
	MIME      []byte // FormatMIME and FormatRaw
	Transport string // FormatRaw
	Spans     []Span // expressions found, in order
	MessageID string // empty for FormatHTML
}

// Bytes returns the primary output for the result's format.
func (r *Result) Bytes() []byte {
	switch r.Format {
	case FormatMIME:
		return r.MIME
	case FormatRaw:
		return []byte(r.Transport)
	default:
		return []byte(r.HTML)
	}
}

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	dpi        int
	timeout    time.Duration
	workers    int
	body       BodyFormat
	styleInput string
	assetPath  string
	title      string
	standalone bool
	normalize  bool
	boundary   string // fixed multipart boundary (tests)
}

// Defaults applied by NewConverter.
const (
	DefaultDPI     = 300
	defaultTimeout = 30 * time.Second
)

// WithRenderer sets the renderer. Without it, NewConverter builds a LaTeX
// renderer with the embedded preamble.
func WithRenderer(r Renderer) Option {
	return func(c *Converter) {
		c.renderer = r
	}
}

// WithDPI sets the rendering resolution.
// Panics if dpi <= 0 (programmer error, similar to time.NewTicker).
func WithDPI(dpi int) Option {
	if dpi <= 0 {
		panic("mathmail: WithDPI must be positive")
	}
	return func(c *Converter) {
		c.cfg.dpi = dpi
	}
}

// WithTimeout bounds each expression's render. A timeout fails the whole
// conversion like any other render error.
// Panics if d <= 0.
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("mathmail: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithWorkers sets how many expressions render at once. Zero or less picks
// a value from GOMAXPROCS (see ResolveWorkers).
func WithWorkers(n int) Option {
	return func(c *Converter) {
		c.cfg.workers = n
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the source of the Date header.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		if now != nil {
			c.now = now
		}
	}
}

// WithBodyFormat sets how text around expressions is converted.
func WithBodyFormat(b BodyFormat) Option {
	return func(c *Converter) {
		c.cfg.body = b
	}
}

// WithStyle sets the CSS of the document shell: a style name, a file path
// or literal CSS.
func WithStyle(style string) Option {
	return func(c *Converter) {
		c.cfg.styleInput = style
	}
}

// WithAssetPath loads styles, templates and preambles from a directory,
// falling back to the embedded assets.
func WithAssetPath(path string) Option {
	return func(c *Converter) {
		c.cfg.assetPath = path
	}
}

// WithAssetLoader loads assets from a custom backend. It takes precedence
// over WithAssetPath.
func WithAssetLoader(loader AssetLoader) Option {
	return func(c *Converter) {
		c.assetLoader = loader
	}
}

// WithTitle sets the <title> of the document shell. Defaults to the subject.
func WithTitle(title string) Option {
	return func(c *Converter) {
		c.cfg.title = title
	}
}

// WithStandaloneHTML wraps FormatHTML output in the full document shell
// instead of returning a fragment. Message formats are always wrapped.
func WithStandaloneHTML(enabled bool) Option {
	return func(c *Converter) {
		c.cfg.standalone = enabled
	}
}

// WithNormalize applies Unicode NFC normalization to input text before
// extraction.
func WithNormalize(enabled bool) Option {
	return func(c *Converter) {
		c.cfg.normalize = enabled
	}
}
