package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
)

// ErrShellTemplate indicates the document shell template is invalid.
var ErrShellTemplate = errors.New("document shell template failed")

// DocumentShell wraps an HTML fragment into a standalone document.
type DocumentShell struct {
	tmpl  *template.Template
	title string
	style string
}

// shellData is passed to the shell template.
type shellData struct {
	Title string
	Style template.CSS
	Body  template.HTML
}

// NewDocumentShell parses tmplText. The template receives .Title, .Style and
// .Body; Body and Style are trusted and inserted unescaped.
func NewDocumentShell(tmplText, title, style string) (*DocumentShell, error) {
	tmpl, err := template.New("document").Parse(tmplText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShellTemplate, err)
	}
	return &DocumentShell{tmpl: tmpl, title: title, style: style}, nil
}

// Wrap returns body inside the document shell.
func (s *DocumentShell) Wrap(body string) (string, error) {
	var buf bytes.Buffer
	data := shellData{
		Title: s.title,
		Style: template.CSS(s.style), // #nosec G203 -- style comes from embedded or configured assets
		Body:  template.HTML(body),   // #nosec G203 -- body is already escaped by the body converter
	}
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrShellTemplate, err)
	}
	return buf.String(), nil
}
