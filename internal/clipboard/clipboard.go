// Package clipboard copies text to the system clipboard through the
// platform's command-line tool (pbcopy, wl-copy, xclip, xsel or clip.exe).
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnavailable indicates no supported clipboard tool was found.
var ErrUnavailable = errors.New("no clipboard tool available")

// Runner executes clipboard tools. Tests substitute a fake.
type Runner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, name string, args []string, stdin io.Reader) error
}

// execRunner runs tools with os/exec.
type execRunner struct{}

func (execRunner) LookPath(name string) (string, error) { return exec.LookPath(name) }

func (execRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) error {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- name comes from the fixed tool list
	cmd.Stdin = stdin
	// Output stays unattached: xclip forks a child that holds the
	// selection, and a captured pipe would block Wait until it exits.
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// tool is one clipboard command.
type tool struct {
	name string
	args []string
}

// Writer copies text to the clipboard.
type Writer struct {
	runner Runner
	goos   string
	getenv func(string) string
}

// New returns a Writer for the current platform.
func New() *Writer {
	return &Writer{runner: execRunner{}, goos: runtime.GOOS, getenv: os.Getenv}
}

// candidates lists tools to try, in order.
func (w *Writer) candidates() []tool {
	switch w.goos {
	case "darwin":
		return []tool{{name: "pbcopy"}}
	case "windows":
		return []tool{{name: "clip.exe"}}
	}

	var tools []tool
	if w.getenv("WAYLAND_DISPLAY") != "" {
		tools = append(tools, tool{name: "wl-copy"})
	}
	tools = append(tools,
		tool{name: "xclip", args: []string{"-selection", "clipboard"}},
		tool{name: "xsel", args: []string{"--clipboard", "--input"}},
	)
	// WSL exposes the Windows clipboard.
	tools = append(tools, tool{name: "clip.exe"})
	return tools
}

// Tool returns the name of the clipboard tool Write would use.
func (w *Writer) Tool() (string, error) {
	for _, t := range w.candidates() {
		if _, err := w.runner.LookPath(t.name); err == nil {
			return t.name, nil
		}
	}
	return "", ErrUnavailable
}

// Write copies text with the first available tool.
func (w *Writer) Write(ctx context.Context, text string) error {
	for _, t := range w.candidates() {
		if _, err := w.runner.LookPath(t.name); err != nil {
			continue
		}
		return w.runner.Run(ctx, t.name, t.args, strings.NewReader(text))
	}
	return fmt.Errorf("%w (tried %s)", ErrUnavailable, w.names())
}

func (w *Writer) names() string {
	var names []string
	for _, t := range w.candidates() {
		names = append(names, t.name)
	}
	return strings.Join(names, ", ")
}
