package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// Placeholder naming. The key identifies an image in the ImageMap and doubles
// as the MIME Content-ID; the token is what appears in processed text.
const (
	placeholderPrefix = "LATEX_IMG_"
	tokenOpen         = "{{"
	tokenClose        = "}}"
)

// PlaceholderKey returns the image key for the span at index i.
func PlaceholderKey(i int) string {
	return placeholderPrefix + strconv.Itoa(i)
}

// PlaceholderToken returns the text token substituted for the span at index i.
func PlaceholderToken(i int) string {
	return tokenOpen + PlaceholderKey(i) + tokenClose
}

// literalMark keeps user text from forming placeholder tokens. It is a
// private-use rune placed after every "{" of a user segment that contains
// "{{", so two user braces are never adjacent. A mark already in the input
// is doubled. Compose strips the marks from literal text after resolution.
const literalMark = "\uE000"

var (
	literalEscaper   = strings.NewReplacer(literalMark, literalMark+literalMark, "{", "{"+literalMark)
	literalUnescaper = strings.NewReplacer(literalMark+literalMark, literalMark, literalMark, "")
)

// escapeLiteral marks s so no placeholder token can be read from it.
// Text without "{{" or a mark is returned as is.
func escapeLiteral(s string) string {
	if !strings.Contains(s, tokenOpen) && !strings.Contains(s, literalMark) {
		return s
	}
	return literalEscaper.Replace(s)
}

// unescapeLiteral reverses escapeLiteral.
func unescapeLiteral(s string) string {
	if !strings.Contains(s, literalMark) {
		return s
	}
	return literalUnescaper.Replace(s)
}

// ImageInfo is presentation metadata kept next to an image.
type ImageInfo struct {
	Expression string // source used for alt text
	Display    bool
}

// ImageMap maps placeholder keys to image bytes, preserving insertion order.
// The zero value is ready to use.
type ImageMap struct {
	keys   []string
	images map[string][]byte
	info   map[string]ImageInfo
}

// NewImageMap returns an empty map with room for n images.
func NewImageMap(n int) *ImageMap {
	return &ImageMap{
		keys:   make([]string, 0, n),
		images: make(map[string][]byte, n),
		info:   make(map[string]ImageInfo, n),
	}
}

// Set stores data under key. Setting an existing key replaces its bytes
// without changing its position.
func (m *ImageMap) Set(key string, data []byte) {
	if m.images == nil {
		m.images = make(map[string][]byte)
	}
	if _, ok := m.images[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.images[key] = data
}

// SetInfo attaches presentation metadata to key.
func (m *ImageMap) SetInfo(key string, info ImageInfo) {
	if m.info == nil {
		m.info = make(map[string]ImageInfo)
	}
	m.info[key] = info
}

// Get returns the bytes stored under key.
func (m *ImageMap) Get(key string) ([]byte, bool) {
	if m == nil {
		return nil, false
	}
	data, ok := m.images[key]
	return data, ok
}

// Info returns the metadata for key, or the zero value.
func (m *ImageMap) Info(key string) ImageInfo {
	if m == nil {
		return ImageInfo{}
	}
	return m.info[key]
}

// Delete removes key, keeping the order of the remaining entries.
func (m *ImageMap) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.images[key]; !ok {
		return
	}
	delete(m.images, key)
	delete(m.info, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *ImageMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of images.
func (m *ImageMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// String is used in test failure output.
func (m *ImageMap) String() string {
	if m == nil {
		return "ImageMap(nil)"
	}
	parts := make([]string, len(m.keys))
	for i, k := range m.keys {
		parts[i] = fmt.Sprintf("%s:%dB", k, len(m.images[k]))
	}
	return "ImageMap[" + strings.Join(parts, " ") + "]"
}
