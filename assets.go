package mathmail

import (
	"errors"
	"fmt"

	"github.com/alnah/go-mathmail/internal/assets"
)

// Names of the built-in assets.
const (
	// DefaultStyle is the CSS embedded in standalone documents.
	DefaultStyle = assets.DefaultStyleName

	// DefaultPreamble is the LaTeX document wrapped around each expression.
	DefaultPreamble = assets.DefaultPreambleName
)

// AssetLoader loads styles, HTML templates and LaTeX preambles by name.
//
// NewAssetLoader returns a filesystem loader that falls back to the embedded
// defaults. Implement this interface for other backends.
type AssetLoader interface {
	// LoadStyle loads a CSS style by name (without .css extension).
	// Returns ErrStyleNotFound if the style doesn't exist.
	LoadStyle(name string) (string, error)

	// LoadTemplate loads an HTML template ("document" or "mathjax").
	// Returns ErrTemplateNotFound if the template doesn't exist.
	LoadTemplate(name string) (string, error)

	// LoadPreamble loads a LaTeX preamble by name (without .tex extension).
	// Returns ErrPreambleNotFound if the preamble doesn't exist.
	LoadPreamble(name string) (string, error)
}

// NewAssetLoader creates an AssetLoader for basePath. An empty basePath
// serves only embedded assets; otherwise files under basePath take
// precedence:
//   - styles/{name}.css
//   - templates/{name}.html
//   - preambles/{name}.tex
//
// Returns ErrInvalidAssetPath if basePath is set but not a readable directory.
func NewAssetLoader(basePath string) (AssetLoader, error) {
	resolver, err := assets.NewAssetResolver(basePath)
	if err != nil {
		return nil, convertAssetError(err)
	}
	return &assetLoaderAdapter{resolver: resolver}, nil
}

// assetLoaderAdapter maps internal errors to the public sentinels.
type assetLoaderAdapter struct {
	resolver *assets.AssetResolver
}

func (a *assetLoaderAdapter) LoadStyle(name string) (string, error) {
	s, err := a.resolver.LoadStyle(name)
	return s, convertAssetError(err)
}

func (a *assetLoaderAdapter) LoadTemplate(name string) (string, error) {
	s, err := a.resolver.LoadTemplate(name)
	return s, convertAssetError(err)
}

func (a *assetLoaderAdapter) LoadPreamble(name string) (string, error) {
	s, err := a.resolver.LoadPreamble(name)
	return s, convertAssetError(err)
}

// convertAssetError maps internal asset errors to public errors.
func convertAssetError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, assets.ErrStyleNotFound):
		return fmt.Errorf("%w: %v", ErrStyleNotFound, err)
	case errors.Is(err, assets.ErrTemplateNotFound):
		return fmt.Errorf("%w: %v", ErrTemplateNotFound, err)
	case errors.Is(err, assets.ErrPreambleNotFound):
		return fmt.Errorf("%w: %v", ErrPreambleNotFound, err)
	case errors.Is(err, assets.ErrInvalidBasePath), errors.Is(err, assets.ErrPathTraversal):
		return fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
	case errors.Is(err, assets.ErrInvalidAssetName):
		return fmt.Errorf("%w: %v", ErrStyleNotFound, err) // an invalid name cannot exist
	default:
		return err
	}
}
