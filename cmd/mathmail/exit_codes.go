package main

import (
	"errors"
	"os"

	mathmail "github.com/alnah/go-mathmail"
	"github.com/alnah/go-mathmail/internal/config"
)

// Exit codes for the mathmail CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Successful conversion
	ExitGeneral  = 1 // General error, including a failed render
	ExitUsage    = 2 // Invalid flags, config, or validation
	ExitIO       = 3 // Input unreadable, output unwritable
	ExitRenderer = 4 // LaTeX toolchain or browser unavailable
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Renderer errors (exit 4)
	if errors.Is(err, mathmail.ErrRendererUnavailable) ||
		errors.Is(err, mathmail.ErrBrowserConnect) {
		return ExitRenderer
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, mathmail.ErrInvalidFormat) ||
		errors.Is(err, mathmail.ErrInvalidBodyFormat) ||
		errors.Is(err, mathmail.ErrInvalidAddress) ||
		errors.Is(err, mathmail.ErrInvalidDPI) ||
		errors.Is(err, mathmail.ErrStyleNotFound) ||
		errors.Is(err, mathmail.ErrTemplateNotFound) ||
		errors.Is(err, mathmail.ErrPreambleNotFound) ||
		errors.Is(err, mathmail.ErrInvalidAssetPath) ||
		errors.Is(err, ErrConflictingFormats) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrUnsupportedShell) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrInputTooLarge) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	return ExitGeneral
}
