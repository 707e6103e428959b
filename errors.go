package mathmail

import (
	"errors"

	"github.com/alnah/go-mathmail/internal/pipeline"
	"github.com/alnah/go-mathmail/internal/render"
)

// Sentinel errors for library operations. Errors from internal packages are
// re-exported by identity, so errors.Is works on anything Convert returns.
var (
	ErrEmptyInput = errors.New("input text cannot be empty")

	// Rendering errors.
	ErrRender              = pipeline.ErrRender
	ErrRendererUnavailable = render.ErrUnavailable
	ErrInvalidDPI          = render.ErrInvalidDPI
	ErrCompile             = render.ErrCompile
	ErrDvipng              = render.ErrDvipng
	ErrTypeset             = render.ErrTypeset
	ErrBrowserConnect      = render.ErrBrowserConnect

	// Composition and assembly errors.
	ErrUnresolvedPlaceholder = pipeline.ErrUnresolvedPlaceholder
	ErrInvalidFormat         = pipeline.ErrInvalidFormat
	ErrInvalidAddress        = pipeline.ErrInvalidAddress
	ErrInvalidBodyFormat     = errors.New("invalid body format")

	// Asset loading errors.
	ErrStyleNotFound    = errors.New("style not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrPreambleNotFound = errors.New("preamble not found")
	ErrInvalidAssetPath = errors.New("invalid asset path")
)

// RenderError reports which expression failed to render. It matches
// ErrRender and unwraps to the renderer's error.
type RenderError = pipeline.RenderError
