package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrMarkdownConversion indicates goldmark failed to render the body.
var ErrMarkdownConversion = errors.New("markdown conversion failed")

// Markdown renders processed text as CommonMark + GFM through goldmark.
// Placeholder tokens are plain text to goldmark and pass through unchanged.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates a Markdown body converter with GFM and inline-styled
// syntax highlighting (mail clients drop stylesheet classes).
func NewMarkdown() *Markdown {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(false),
				),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			// WithUnsafe stays off: raw HTML in the source is escaped.
		),
	)
	return &Markdown{md: md}
}

// ToHTML implements BodyConverter.
// goldmark has no context support, so conversion runs in a goroutine and the
// caller stops waiting on cancellation.
func (m *Markdown) ToHTML(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := m.md.Convert([]byte(text), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrMarkdownConversion, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}
