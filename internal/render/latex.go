package render

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/alnah/go-mathmail/internal/fileutil"
)

// Default tool names, resolved on PATH.
const (
	DefaultLatexBinary  = "latex"
	DefaultDvipngBinary = "dvipng"
)

// maxDiagnosticLength caps the latex log excerpt carried in errors.
const maxDiagnosticLength = 240

// Latex renders expressions with a local TeX installation: the expression is
// written into a standalone document, compiled to DVI by latex and rasterized
// by dvipng with a tight, transparent bounding box.
type Latex struct {
	runner    CommandRunner
	latexBin  string
	dvipngBin string
	packages  []string
	tmpl      *template.Template
	logger    *slog.Logger
}

// LatexOption configures a Latex renderer.
type LatexOption func(*Latex)

// WithRunner replaces the command runner.
func WithRunner(r CommandRunner) LatexOption {
	return func(l *Latex) {
		if r != nil {
			l.runner = r
		}
	}
}

// WithLatexBinary sets the latex executable.
func WithLatexBinary(path string) LatexOption {
	return func(l *Latex) {
		if path != "" {
			l.latexBin = path
		}
	}
}

// WithDvipngBinary sets the dvipng executable.
func WithDvipngBinary(path string) LatexOption {
	return func(l *Latex) {
		if path != "" {
			l.dvipngBin = path
		}
	}
}

// WithPackages sets the packages loaded by the preamble.
func WithPackages(pkgs ...string) LatexOption {
	return func(l *Latex) {
		l.packages = append([]string(nil), pkgs...)
	}
}

// WithLatexLogger sets the logger for tool invocations.
func WithLatexLogger(logger *slog.Logger) LatexOption {
	return func(l *Latex) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// latexSource is the data passed to the preamble template.
type latexSource struct {
	Packages   []string
	Expression string
	Display    bool
}

// NewLatex creates a Latex renderer from a text/template preamble receiving
// .Packages, .Expression and .Display.
func NewLatex(preamble string, opts ...LatexOption) (*Latex, error) {
	tmpl, err := template.New("preamble").Parse(preamble)
	if err != nil {
		return nil, fmt.Errorf("parsing LaTeX preamble: %w", err)
	}

	l := &Latex{
		runner:    ExecRunner{},
		latexBin:  DefaultLatexBinary,
		dvipngBin: DefaultDvipngBinary,
		packages:  []string{"amsmath", "amssymb"},
		tmpl:      tmpl,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Check reports whether both tools are on PATH.
func (l *Latex) Check() error {
	var errs []error
	if _, err := l.runner.LookPath(l.latexBin); err != nil {
		errs = append(errs, toolMissing(ErrCompile, l.latexBin))
	}
	if _, err := l.runner.LookPath(l.dvipngBin); err != nil {
		errs = append(errs, toolMissing(ErrDvipng, l.dvipngBin))
	}
	return errors.Join(errs...)
}

// Render implements Renderer.
func (l *Latex) Render(ctx context.Context, req Request) ([]byte, error) {
	dpi, err := req.dpi()
	if err != nil {
		return nil, fmt.Errorf("%w: %d", err, req.DPI)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, cleanup, err := fileutil.MakeWorkDir("latex")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var src bytes.Buffer
	if err := l.tmpl.Execute(&src, latexSource{
		Packages:   l.packages,
		Expression: req.Expression,
		Display:    req.Display,
	}); err != nil {
		return nil, fmt.Errorf("%w: preamble: %v", ErrCompile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "expr.tex"), src.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("writing LaTeX source: %w", err)
	}

	start := time.Now()
	out, err := l.runner.Run(ctx, dir, l.latexBin,
		"-interaction=nonstopmode", "-halt-on-error", "-no-shell-escape", "expr.tex")
	if err != nil {
		return nil, l.toolError(ctx, ErrCompile, l.latexBin, out, err)
	}
	l.logger.Debug("latex compiled", "dir", dir, "duration", time.Since(start))

	start = time.Now()
	out, err = l.runner.Run(ctx, dir, l.dvipngBin,
		"-q", "-D", strconv.Itoa(dpi), "-T", "tight", "-bg", "Transparent", "-o", "expr.png", "expr.dvi")
	if err != nil {
		return nil, l.toolError(ctx, ErrDvipng, l.dvipngBin, out, err)
	}
	l.logger.Debug("dvipng rasterized", "dpi", dpi, "duration", time.Since(start))

	data, err := os.ReadFile(filepath.Join(dir, "expr.png")) // #nosec G304 -- path inside our work dir
	if err != nil {
		return nil, fmt.Errorf("%w: no image produced: %v", ErrDvipng, err)
	}
	return data, nil
}

// toolError classifies a failed tool run.
func (l *Latex) toolError(ctx context.Context, stage error, bin string, out []byte, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, exec.ErrNotFound) {
		return toolMissing(stage, bin)
	}
	return fmt.Errorf("%w: %s", stage, diagnostic(out, err))
}

func toolMissing(stage error, bin string) error {
	return fmt.Errorf("%w: %q not found on PATH (%w)", stage, bin, ErrUnavailable)
}

// diagnostic extracts the most useful line from tool output: the first TeX
// error line ("! ...") and its location, or the last non-empty line.
func diagnostic(out []byte, err error) string {
	var last, msg string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if msg != "" && strings.HasPrefix(line, "l.") {
			msg += " (" + line + ")"
			break
		}
		if msg == "" && strings.HasPrefix(line, "!") {
			msg = strings.TrimSpace(strings.TrimPrefix(line, "!"))
			continue
		}
		last = line
	}
	if msg == "" {
		msg = last
	}
	if msg == "" {
		msg = err.Error()
	}
	if len(msg) > maxDiagnosticLength {
		n := maxDiagnosticLength
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n] + "..."
	}
	return msg
}
