package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrUnresolvedPlaceholder indicates processed text references an image that
// is missing from the ImageMap. Substitute always produces both together, so
// this is a caller bug rather than a user error.
var ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")

// RefMode selects how placeholders resolve to image references.
type RefMode int

const (
	// RefContentID points at a sibling MIME part: src="cid:KEY".
	RefContentID RefMode = iota
	// RefInlineData embeds the image: src="data:image/png;base64,...".
	RefInlineData
)

// String implements fmt.Stringer.
func (m RefMode) String() string {
	switch m {
	case RefContentID:
		return "cid"
	case RefInlineData:
		return "data"
	default:
		return fmt.Sprintf("RefMode(%d)", int(m))
	}
}

// BodyConverter turns processed text into an HTML fragment. Placeholder
// tokens must come out verbatim.
type BodyConverter interface {
	ToHTML(ctx context.Context, text string) (string, error)
}

// ComposeOptions configures Compose.
type ComposeOptions struct {
	Mode  RefMode
	Body  BodyConverter  // nil means PlainText
	Shell *DocumentShell // nil means fragment output
}

// Compose converts processed text into HTML with every placeholder resolved
// against images.
//
// The body converter escapes and breaks the text, placeholders in the body
// are resolved, and the shell (if any) wraps the result into a full
// document. Title and style never pass through resolution. A placeholder
// without an image fails with ErrUnresolvedPlaceholder.
func Compose(ctx context.Context, processed string, images *ImageMap, opts ComposeOptions) (string, error) {
	body := opts.Body
	if body == nil {
		body = PlainText{}
	}

	doc, err := body.ToHTML(ctx, processed)
	if err != nil {
		return "", err
	}

	doc, err = resolvePlaceholders(doc, images, opts.Mode)
	if err != nil {
		return "", err
	}

	if opts.Shell != nil {
		return opts.Shell.Wrap(doc)
	}
	return doc, nil
}

// PlainText escapes text and turns each line break into <br>.
type PlainText struct{}

// ToHTML implements BodyConverter. Placeholder tokens are copied unescaped.
func (PlainText) ToHTML(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(text) + len(text)/8)

	for _, seg := range splitPlaceholders(text) {
		if seg.key != "" {
			b.WriteString(seg.text)
			continue
		}
		b.WriteString(convertBreaks(EscapeHTML(seg.text)))
	}
	return b.String(), nil
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// EscapeHTML escapes the five markup-significant characters.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

var breakReplacer = strings.NewReplacer(
	"\r\n", "<br>\n",
	"\r", "<br>\n",
	"\n", "<br>\n",
)

// convertBreaks emits one <br> per source line break. Blank lines are not
// treated as paragraphs.
func convertBreaks(s string) string {
	return breakReplacer.Replace(s)
}

// segment is either literal text (key == "") or a placeholder token.
type segment struct {
	text string
	key  string
}

// splitPlaceholders cuts text into literal runs and {{LATEX_IMG_<n>}} tokens.
// Anything that only resembles a token stays literal.
func splitPlaceholders(text string) []segment {
	var segs []segment

	last := 0
	pos := 0
	for pos < len(text) {
		rel := strings.Index(text[pos:], tokenOpen+placeholderPrefix)
		if rel < 0 {
			break
		}
		start := pos + rel
		key, end, ok := parseToken(text, start)
		if !ok {
			pos = start + len(tokenOpen)
			continue
		}
		if start > last {
			segs = append(segs, segment{text: text[last:start]})
		}
		segs = append(segs, segment{text: text[start:end], key: key})
		last = end
		pos = end
	}
	if last < len(text) {
		segs = append(segs, segment{text: text[last:]})
	}
	return segs
}

// parseToken reads a placeholder token starting at start and returns its key
// and the offset just past it.
func parseToken(text string, start int) (key string, end int, ok bool) {
	digits := start + len(tokenOpen) + len(placeholderPrefix)
	i := digits
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if i == digits || !strings.HasPrefix(text[i:], tokenClose) {
		return "", 0, false
	}
	return text[start+len(tokenOpen) : i], i + len(tokenClose), true
}

// resolvePlaceholders replaces every token in doc with an <img> tag and
// removes literal marks from the text around them.
func resolvePlaceholders(doc string, images *ImageMap, mode RefMode) (string, error) {
	var b strings.Builder
	b.Grow(len(doc))

	for _, seg := range splitPlaceholders(doc) {
		if seg.key == "" {
			b.WriteString(unescapeLiteral(seg.text))
			continue
		}
		data, ok := images.Get(seg.key)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, seg.key)
		}
		b.WriteString(imageTag(seg.key, data, images.Info(seg.key), mode))
	}
	return b.String(), nil
}

// Inline styles survive mail clients that drop <style> blocks.
const (
	inlineImageStyle  = "vertical-align: middle;"
	displayImageStyle = "display: block; margin: 0.5em auto;"
)

// imageTag builds the <img> element for one placeholder.
func imageTag(key string, data []byte, info ImageInfo, mode RefMode) string {
	var src string
	switch mode {
	case RefInlineData:
		src = "data:" + SniffImageType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
	default:
		src = "cid:" + key
	}

	class, style := "math-inline", inlineImageStyle
	if info.Display {
		class, style = "math-display", displayImageStyle
	}

	var b strings.Builder
	b.WriteString(`<img src="`)
	b.WriteString(src)
	b.WriteString(`"`)
	if info.Expression != "" {
		b.WriteString(` alt="`)
		b.WriteString(EscapeHTML(info.Expression))
		b.WriteString(`"`)
	}
	b.WriteString(` class="`)
	b.WriteString(class)
	b.WriteString(`" style="`)
	b.WriteString(style)
	b.WriteString(`">`)
	return b.String()
}
