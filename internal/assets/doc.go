// Package assets provides the document shell, stylesheet, LaTeX preamble and
// MathJax page used to render and compose messages.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - go:embed defaults
//	    ├── FilesystemLoader  - a user directory on disk
//	    └── AssetResolver     - custom first, embedded fallback
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css        # stylesheet inlined into the document shell
//	├── templates/
//	│   ├── document.html     # html/template shell (.Title, .Style, .Body)
//	│   └── mathjax.html      # browser renderer page
//	└── preambles/
//	    └── {name}.tex        # text/template LaTeX source for one expression
//
// Asset names are validated and filesystem paths are kept inside basePath.
package assets
