package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	mathmail "github.com/alnah/go-mathmail"
	"github.com/alnah/go-mathmail/internal/clipboard"
	"github.com/alnah/go-mathmail/internal/config"
)

// clipboardWriter copies text to the system clipboard.
type clipboardWriter interface {
	Tool() (string, error)
	Write(ctx context.Context, text string) error
}

// Compile-time interface implementation check.
var _ clipboardWriter = (*clipboard.Writer)(nil)

// rendererFactory builds the expression renderer for a resolved config.
type rendererFactory func(cfg *config.Config, logger *slog.Logger) (mathmail.Renderer, error)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now       func() time.Time
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Getenv    func(string) string
	Environ   func() []string
	LookPath  func(string) (string, error)
	Clipboard clipboardWriter

	// NewRenderer overrides the renderer selected by render.engine.
	// Nil means build it from the config.
	NewRenderer rendererFactory
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:       time.Now,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Getenv:    os.Getenv,
		Environ:   os.Environ,
		LookPath:  exec.LookPath,
		Clipboard: clipboard.New(),
	}
}

// getenv reads a variable, tolerating a partially filled Environment.
func (e *Environment) getenv(key string) string {
	if e.Getenv == nil {
		return ""
	}
	return e.Getenv(key)
}

// environ lists the environment, tolerating a partially filled Environment.
func (e *Environment) environ() []string {
	if e.Environ == nil {
		return nil
	}
	return e.Environ()
}

// now returns the current time, tolerating a partially filled Environment.
func (e *Environment) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// lookPath resolves a binary, tolerating a partially filled Environment.
func (e *Environment) lookPath(name string) (string, error) {
	if e.LookPath == nil {
		return exec.LookPath(name)
	}
	return e.LookPath(name)
}
