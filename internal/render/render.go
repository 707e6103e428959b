// Package render turns single LaTeX expressions into PNG images.
//
// Two engines are provided: Latex drives a local TeX installation (latex then
// dvipng) and Browser typesets with MathJax in headless Chrome. Both satisfy
// Renderer and are safe for concurrent use.
package render

import (
	"context"
	"errors"
)

// Sentinel errors for rendering.
var (
	// ErrCompile indicates latex rejected the expression.
	ErrCompile = errors.New("LaTeX compilation failed")

	// ErrDvipng indicates dvipng could not rasterize the compiled expression.
	ErrDvipng = errors.New("dvipng conversion failed")

	// ErrTypeset indicates MathJax reported an error for the expression.
	ErrTypeset = errors.New("MathJax typesetting failed")

	// ErrUnavailable indicates a required tool or browser is missing.
	ErrUnavailable = errors.New("renderer unavailable")

	// ErrInvalidDPI indicates a non-positive resolution.
	ErrInvalidDPI = errors.New("invalid DPI")

	// ErrBrowserConnect indicates Chrome could not be launched or reached.
	ErrBrowserConnect = errors.New("failed to connect to browser")
)

// DefaultDPI is used when a Request leaves DPI at zero.
const DefaultDPI = 300

// Request describes one expression to render.
type Request struct {
	Expression string // delimiters already stripped
	Display    bool
	DPI        int // 0 = DefaultDPI
}

// dpi returns the effective resolution.
func (r Request) dpi() (int, error) {
	switch {
	case r.DPI == 0:
		return DefaultDPI, nil
	case r.DPI < 0:
		return 0, ErrInvalidDPI
	default:
		return r.DPI, nil
	}
}

// Renderer renders one expression to image bytes.
type Renderer interface {
	Render(ctx context.Context, req Request) ([]byte, error)
}

// Func adapts a function to Renderer.
type Func func(ctx context.Context, req Request) ([]byte, error)

// Render implements Renderer.
func (f Func) Render(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// Closer is implemented by renderers holding external resources.
type Closer interface {
	Close() error
}

// Compile-time interface checks.
var (
	_ Renderer = Func(nil)
	_ Renderer = (*Latex)(nil)
	_ Renderer = (*Browser)(nil)
	_ Closer   = (*Browser)(nil)
)
