package mathmail

import (
	"log/slog"
	"time"

	"github.com/alnah/go-mathmail/internal/assets"
	"github.com/alnah/go-mathmail/internal/pipeline"
	"github.com/alnah/go-mathmail/internal/render"
)

// Renderer turns one expression into image bytes. Implementations must be
// safe for concurrent use and should honor ctx cancellation; a timeout is
// reported like any other failure.
type Renderer = render.Renderer

// RenderRequest is one expression to render, delimiters stripped.
type RenderRequest = render.Request

// RendererFunc adapts a function to Renderer.
type RendererFunc = render.Func

// Span is one math expression located in the input text.
type Span = pipeline.Span

// Extract returns every math expression in text in source order.
// Recognized delimiters, tried in this order at each position: $$...$$ and
// \[...\] (display), \(...\) and $...$ (inline).
func Extract(text string) []Span {
	return pipeline.Extract(text)
}

// LatexOptions configures NewLatexRenderer.
type LatexOptions struct {
	LatexBinary  string   // default "latex"
	DvipngBinary string   // default "dvipng"
	Packages     []string // default amsmath, amssymb
	Preamble     string   // text/template source; default embedded preamble
	Logger       *slog.Logger
}

// NewLatexRenderer creates a renderer backed by latex and dvipng.
func NewLatexRenderer(o LatexOptions) (Renderer, error) {
	preamble := o.Preamble
	if preamble == "" {
		var err error
		preamble, err = assets.NewEmbeddedLoader().LoadPreamble(assets.DefaultPreambleName)
		if err != nil {
			return nil, convertAssetError(err)
		}
	}
	opts := []render.LatexOption{
		render.WithLatexBinary(o.LatexBinary),
		render.WithDvipngBinary(o.DvipngBinary),
		render.WithLatexLogger(o.Logger),
	}
	if len(o.Packages) > 0 {
		opts = append(opts, render.WithPackages(o.Packages...))
	}
	l, err := render.NewLatex(preamble, opts...)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// DefaultMathJaxURL is the MathJax build loaded by the browser renderer.
const DefaultMathJaxURL = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-svg.js"

// BrowserOptions configures NewBrowserRenderer.
type BrowserOptions struct {
	MathJaxURL string        // default DefaultMathJaxURL
	Binary     string        // Chrome executable; default auto-detected
	Timeout    time.Duration // per page when ctx has no deadline
	Page       string        // html/template source; default embedded page
	Logger     *slog.Logger
}

// NewBrowserRenderer creates a renderer that typesets with MathJax in
// headless Chrome. Chrome starts on first use; close the renderer (or the
// Converter that owns it) to stop it.
func NewBrowserRenderer(o BrowserOptions) (Renderer, error) {
	page := o.Page
	if page == "" {
		var err error
		page, err = assets.NewEmbeddedLoader().LoadTemplate(assets.MathJaxTemplate)
		if err != nil {
			return nil, convertAssetError(err)
		}
	}
	url := o.MathJaxURL
	if url == "" {
		url = DefaultMathJaxURL
	}
	b, err := render.NewBrowser(page, url,
		render.WithBrowserBinary(o.Binary),
		render.WithPageTimeout(o.Timeout),
		render.WithBrowserLogger(o.Logger),
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}
