package pipeline

import "strings"

// Span is one delimited math expression located in source text.
// Start and End are byte offsets into the source, half-open, and cover the
// delimiters. Content is the text between the delimiters, unmodified.
type Span struct {
	Start   int
	End     int
	Content string
	Display bool
}

// delimiter is an opening/closing pair recognized by Extract.
type delimiter struct {
	open    string
	close   string
	display bool
}

// delimiters in match priority. "$$" must be tried before "$" at the same
// position, otherwise a display opener reads as an empty inline expression.
var delimiters = [...]delimiter{
	{open: "$$", close: "$$", display: true},
	{open: `\[`, close: `\]`, display: true},
	{open: `\(`, close: `\)`, display: false},
	{open: "$", close: "$", display: false},
}

// Extract scans text left to right and returns every delimited math span in
// order of appearance.
//
// At each position the delimiters are tried in priority order; a match closes
// at the nearest following closer and scanning resumes right after it. An
// opener without a closer is plain text. Because the nearest closer always
// wins, "$10 and $20" reads as a single inline span: currency-like dollar
// signs are not special-cased.
func Extract(text string) []Span {
	var spans []Span

	pos := 0
	for pos < len(text) {
		next := strings.IndexAny(text[pos:], `$\`)
		if next < 0 {
			break
		}
		pos += next

		span, ok := matchAt(text, pos)
		if !ok {
			pos++
			continue
		}
		spans = append(spans, span)
		pos = span.End
	}

	return spans
}

// matchAt tries every delimiter at pos and returns the first that closes.
func matchAt(text string, pos int) (Span, bool) {
	for _, d := range delimiters {
		if !strings.HasPrefix(text[pos:], d.open) {
			continue
		}
		bodyStart := pos + len(d.open)
		rel := strings.Index(text[bodyStart:], d.close)
		if rel < 0 {
			continue
		}
		bodyEnd := bodyStart + rel
		return Span{
			Start:   pos,
			End:     bodyEnd + len(d.close),
			Content: text[bodyStart:bodyEnd],
			Display: d.display,
		}, true
	}
	return Span{}, false
}
