package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidFormat indicates an unknown artifact format.
var ErrInvalidFormat = errors.New("invalid output format")

// Format selects the artifact Assemble produces.
type Format int

const (
	// FormatMIME is a serialized multipart/related message.
	FormatMIME Format = iota
	// FormatRaw is FormatMIME encoded as URL-safe base64, for submission
	// APIs that take one opaque string.
	FormatRaw
	// FormatHTML is an HTML fragment with images embedded as data: URIs.
	FormatHTML
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case FormatMIME:
		return "mime"
	case FormatRaw:
		return "raw"
	case FormatHTML:
		return "html"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Artifact is the assembled output. Fields not produced by the requested
// format are left empty.
type Artifact struct {
	Format    Format
	HTML      string // composed markup (the text/html part for message formats)
	MIME      []byte // FormatMIME, FormatRaw
	Transport string // FormatRaw
}

// AssembleOptions configures Assemble.
type AssembleOptions struct {
	Format   Format
	Headers  Headers
	Body     BodyConverter
	Shell    *DocumentShell // wraps message bodies; required for FormatMIME and FormatRaw
	WrapHTML bool           // also wrap FormatHTML output in Shell
	Boundary string         // fixed multipart boundary, empty means random
}

// Assemble composes processed text and wraps it into the requested artifact.
// Composition is shared by all formats; only the final wrapping differs.
func Assemble(ctx context.Context, processed string, images *ImageMap, opts AssembleOptions) (*Artifact, error) {
	compose := ComposeOptions{Body: opts.Body}

	switch opts.Format {
	case FormatMIME, FormatRaw:
		compose.Mode = RefContentID
		compose.Shell = opts.Shell
	case FormatHTML:
		compose.Mode = RefInlineData
		if opts.WrapHTML {
			compose.Shell = opts.Shell
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, opts.Format)
	}

	html, err := Compose(ctx, processed, images, compose)
	if err != nil {
		return nil, err
	}

	art := &Artifact{Format: opts.Format, HTML: html}
	if opts.Format == FormatHTML {
		return art, nil
	}

	raw, err := BuildMessage(Message{
		Headers:  opts.Headers,
		HTML:     html,
		Images:   images,
		Boundary: opts.Boundary,
	})
	if err != nil {
		return nil, err
	}
	art.MIME = raw

	if opts.Format == FormatRaw {
		art.Transport = EncodeTransport(raw)
	}
	return art, nil
}
