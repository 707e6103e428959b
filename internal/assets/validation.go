package assets

import (
	"fmt"
	"strings"
	"unicode"
)

// maxAssetNameLength bounds names taken from config files and flags.
const maxAssetNameLength = 64

// ValidateAssetName checks that name is safe to use as a file stem.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if len(name) > maxAssetNameLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidAssetName, maxAssetNameLength)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	if strings.ContainsFunc(name, unicode.IsControl) {
		return fmt.Errorf("%w: control character in %q", ErrInvalidAssetName, name)
	}
	return nil
}
