package mathmail

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/alnah/go-mathmail/internal/assets"
	"github.com/alnah/go-mathmail/internal/fileutil"
	"github.com/alnah/go-mathmail/internal/pipeline"
	"github.com/alnah/go-mathmail/internal/render"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.BodyConverter = pipeline.PlainText{}
	_ pipeline.BodyConverter = (*pipeline.Markdown)(nil)
)

// defaultMessageIDDomain is used when the sender has no parseable domain.
const defaultMessageIDDomain = "mathmail.local"

// Converter runs the text-to-artifact pipeline: extract expressions, render
// each to an image, compose HTML, and assemble the requested artifact.
// Create with NewConverter, use Convert, and Close when done. A Converter is
// safe for concurrent use.
type Converter struct {
	cfg         converterConfig
	renderer    Renderer
	assetLoader AssetLoader
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
	body        pipeline.BodyConverter
	shellTmpl   string
	style       string
}

// NewConverter creates a Converter with default configuration.
// Returns an error if assets cannot be loaded.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg: converterConfig{
			dpi:     DefaultDPI,
			timeout: defaultTimeout,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  uuid.NewString,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.assetLoader == nil {
		loader, err := NewAssetLoader(c.cfg.assetPath)
		if err != nil {
			return nil, err
		}
		c.assetLoader = loader
	}

	switch c.cfg.body {
	case BodyText:
		c.body = pipeline.PlainText{}
	case BodyMarkdown:
		c.body = pipeline.NewMarkdown()
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidBodyFormat, c.cfg.body)
	}

	shell, err := c.assetLoader.LoadTemplate(assets.DocumentTemplate)
	if err != nil {
		return nil, fmt.Errorf("loading document template: %w", err)
	}
	c.shellTmpl = shell

	if err := c.resolveStyle(); err != nil {
		return nil, err
	}

	if c.renderer == nil {
		preamble, err := c.assetLoader.LoadPreamble(DefaultPreamble)
		if err != nil {
			return nil, fmt.Errorf("loading LaTeX preamble: %w", err)
		}
		r, err := NewLatexRenderer(LatexOptions{Preamble: preamble, Logger: c.logger})
		if err != nil {
			return nil, err
		}
		c.renderer = r
	}

	c.cfg.workers = ResolveWorkers(c.cfg.workers)
	return c, nil
}

// Convert extracts every expression in input.Text, renders it, and
// assembles input.Format. Any render failure aborts the conversion with a
// *RenderError naming the expression; no partial artifact is returned.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) Convert(ctx context.Context, input Input) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if strings.TrimSpace(input.Text) == "" {
		return nil, ErrEmptyInput
	}

	text := input.Text
	if c.cfg.normalize {
		text = norm.NFC.String(text)
	}

	spans := pipeline.Extract(text)
	c.logger.Debug("extracted expressions", "count", len(spans))

	start := time.Now()
	processed, images, err := pipeline.Substitute(ctx, text, spans, c.renderFunc(), c.cfg.workers)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("rendered expressions", "count", images.Len(), "workers", c.cfg.workers, "duration", time.Since(start))

	title := c.cfg.title
	if title == "" {
		title = input.Subject
	}
	shell, err := pipeline.NewDocumentShell(c.shellTmpl, title, c.style)
	if err != nil {
		return nil, err
	}

	var headers pipeline.Headers
	if input.Format != FormatHTML {
		headers = pipeline.Headers{
			Subject:   input.Subject,
			From:      input.From,
			To:        input.To,
			Date:      c.now(),
			MessageID: c.messageID(input.From),
		}
	}

	art, err := pipeline.Assemble(ctx, processed, images, pipeline.AssembleOptions{
		Format:   input.Format,
		Headers:  headers,
		Body:     c.body,
		Shell:    shell,
		WrapHTML: c.cfg.standalone,
		Boundary: c.cfg.boundary,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("assembled artifact", "format", art.Format, "bytes", len(art.MIME)+len(art.HTML))

	return &Result{
		Format:    art.Format,
		HTML:      art.HTML,
		MIME:      art.MIME,
		Transport: art.Transport,
		Spans:     spans,
		MessageID: headers.MessageID,
	}, nil
}

// Close releases renderer resources (headless Chrome).
func (c *Converter) Close() error {
	if cl, ok := c.renderer.(render.Closer); ok {
		return cl.Close()
	}
	return nil
}

// renderFunc adapts the renderer to the substitution step, bounding each
// call by the configured timeout.
func (c *Converter) renderFunc() pipeline.RenderFunc {
	return func(ctx context.Context, expression string, display bool) (img []byte, err error) {
		// Renders run on worker goroutines, out of reach of Convert's recover.
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("renderer panic: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
		defer cancel()

		start := time.Now()
		img, err = c.renderer.Render(ctx, RenderRequest{
			Expression: expression,
			Display:    display,
			DPI:        c.cfg.dpi,
		})
		if err != nil {
			c.logger.Debug("render failed", "expression", expression, "error", err)
			return nil, err
		}
		c.logger.Debug("rendered", "display", display, "bytes", len(img), "duration", time.Since(start))
		return img, nil
	}
}

// messageID returns a unique id scoped to the sender's domain.
func (c *Converter) messageID(from string) string {
	domain := defaultMessageIDDomain
	if addr, err := mail.ParseAddress(from); err == nil {
		if at := strings.LastIndexByte(addr.Address, '@'); at >= 0 && at < len(addr.Address)-1 {
			domain = addr.Address[at+1:]
		}
	}
	return c.newID() + "@" + domain
}

// resolveStyle resolves the style input (name, path, or CSS content) to CSS content.
func (c *Converter) resolveStyle() error {
	input := c.cfg.styleInput
	if input == "" {
		input = DefaultStyle
	}

	if strings.Contains(input, "{") {
		c.style = input
		return nil
	}

	if fileutil.IsFilePath(input) {
		content, err := os.ReadFile(input) // #nosec G304 -- user-provided path
		if err != nil {
			return fmt.Errorf("loading style file %q: %w", input, err)
		}
		c.style = string(content)
		return nil
	}

	css, err := c.assetLoader.LoadStyle(input)
	if err != nil {
		return fmt.Errorf("loading style %q: %w", input, err)
	}
	c.style = css
	return nil
}
