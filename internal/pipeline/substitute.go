package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ErrRender indicates an expression could not be rendered to an image.
var ErrRender = errors.New("rendering failed")

// RenderError reports which expression failed to render.
// It matches ErrRender with errors.Is and unwraps to the renderer's error.
type RenderError struct {
	Index      int    // position of the span in extraction order
	Expression string // delimiter-stripped content passed to the renderer
	Err        error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering expression %d %q: %v", e.Index, e.Expression, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrRender) match without the renderer wrapping it.
func (e *RenderError) Is(target error) bool { return target == ErrRender }

// RenderFunc turns one expression into image bytes.
type RenderFunc func(ctx context.Context, expression string, display bool) ([]byte, error)

// Substitute replaces every span in text with its placeholder token and
// renders each span's content.
//
// spans must come from Extract(text). Placeholder keys follow the span index,
// so the result depends only on the span list. Up to workers renders run at
// once (workers < 1 means one); the returned map is ordered by span index
// whatever order the renders finish in. The first render failure cancels the
// rest and Substitute returns no text and no images.
func Substitute(ctx context.Context, text string, spans []Span, render RenderFunc, workers int) (string, *ImageMap, error) {
	if len(spans) == 0 {
		return escapeLiteral(text), NewImageMap(0), nil
	}

	processed := replaceSpans(text, spans)

	results, err := renderAll(ctx, spans, render, workers)
	if err != nil {
		return "", nil, err
	}

	images := NewImageMap(len(spans))
	for i, data := range results {
		key := PlaceholderKey(i)
		images.Set(key, data)
		images.SetInfo(key, ImageInfo{Expression: spans[i].Content, Display: spans[i].Display})
	}
	return processed, images, nil
}

// replaceSpans copies text once, emitting a token in place of each span.
// Offsets always refer to the original text. Copied segments are escaped so
// a literal "{{LATEX_IMG_0}}" in the input stays text.
func replaceSpans(text string, spans []Span) string {
	var b strings.Builder
	b.Grow(len(text))

	last := 0
	for i, s := range spans {
		b.WriteString(escapeLiteral(text[last:s.Start]))
		b.WriteString(PlaceholderToken(i))
		last = s.End
	}
	b.WriteString(escapeLiteral(text[last:]))

	return b.String()
}

// renderAll renders every span into a slot indexed by span position.
// When several renders fail, the failure with the lowest span index is
// reported so the error does not depend on scheduling.
func renderAll(ctx context.Context, spans []Span, render RenderFunc, workers int) ([][]byte, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([][]byte, len(spans))
	failures := make([]*RenderError, len(spans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, s := range spans {
		s, i := s, i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := render(gctx, s.Content, s.Display)
			if err != nil {
				failures[i] = &RenderError{Index: i, Expression: s.Content, Err: err}
				return failures[i]
			}
			results[i] = data
			return nil
		})
	}

	err := g.Wait()
	for _, f := range failures {
		if f != nil && !errors.Is(f.Err, context.Canceled) {
			return nil, f
		}
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}
