package assets

// Built-in asset names.
const (
	DefaultStyleName    = "default"
	DocumentTemplate    = "document"
	MathJaxTemplate     = "mathjax"
	DefaultPreambleName = "default"
)

// AssetLoader loads named assets. Names carry no extension or path.
type AssetLoader interface {
	// LoadStyle loads styles/{name}.css.
	LoadStyle(name string) (string, error)

	// LoadTemplate loads templates/{name}.html.
	LoadTemplate(name string) (string, error)

	// LoadPreamble loads preambles/{name}.tex.
	LoadPreamble(name string) (string, error)
}

// kind describes where an asset lives and what is returned when it is missing.
type kind struct {
	dir      string
	ext      string
	notFound error
}

var (
	styleKind    = kind{dir: "styles", ext: ".css", notFound: ErrStyleNotFound}
	templateKind = kind{dir: "templates", ext: ".html", notFound: ErrTemplateNotFound}
	preambleKind = kind{dir: "preambles", ext: ".tex", notFound: ErrPreambleNotFound}
)
