package assets

import "errors"

// Sentinel errors for asset operations.
var (
	// ErrStyleNotFound indicates the requested style does not exist.
	ErrStyleNotFound = errors.New("style not found")

	// ErrTemplateNotFound indicates the requested HTML template does not exist.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrPreambleNotFound indicates the requested LaTeX preamble does not exist.
	ErrPreambleNotFound = errors.New("preamble not found")

	// ErrInvalidAssetName indicates the asset name contains path separators,
	// dots or control characters.
	ErrInvalidAssetName = errors.New("invalid asset name")

	// ErrInvalidBasePath indicates the configured asset directory is unusable.
	ErrInvalidBasePath = errors.New("invalid base path")

	// ErrAssetRead indicates an I/O error while reading an asset file.
	ErrAssetRead = errors.New("failed to read asset")

	// ErrPathTraversal indicates an attempt to read outside the base path.
	ErrPathTraversal = errors.New("path traversal detected")
)

// isNotFound reports whether err means the asset is simply absent.
func isNotFound(err error) bool {
	return errors.Is(err, ErrStyleNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrPreambleNotFound)
}
