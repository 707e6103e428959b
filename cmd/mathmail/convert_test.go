package main

// Notes:
// - Conversions run end to end through runConvertCmd with a fake renderer
//   injected via Environment.NewRenderer, so no TeX or Chrome is required.
// - Environment variables come from the test's Getenv map, so tests can run
//   in parallel without t.Setenv.
// - The Redis cache path is exercised against miniredis.

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	mathmail "github.com/alnah/go-mathmail"
	"github.com/alnah/go-mathmail/internal/config"
)

// ---------------------------------------------------------------------------
// TestRunConvertCmd_Formats - Output shape per format flag
// ---------------------------------------------------------------------------

func TestRunConvertCmd_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		decode   bool
		contains []string
	}{
		{
			name:     "default is base64 transport",
			args:     []string{"Euler: $e^{i\\pi}+1=0$", "--subject", "Math", "--from", "alice@uni.example", "--to", "bob@uni.example"},
			decode:   true,
			contains: []string{"MIME-Version: 1.0", "Subject: Math", "Content-Type: multipart/related", "Content-Id: <LATEX_IMG_0>"},
		},
		{
			name:     "raw prints MIME",
			args:     []string{"$x$", "--raw"},
			contains: []string{"MIME-Version: 1.0", "Content-Type:"},
		},
		{
			name:     "format mime",
			args:     []string{"$x$", "--format", "mime"},
			contains: []string{"MIME-Version: 1.0"},
		},
		{
			name:     "html inlines images",
			args:     []string{"Area: $\\pi r^2$", "--html"},
			contains: []string{"Area: ", `src="data:image/png;base64,`, "math-inline"},
		},
		{
			name:     "standalone html has document shell",
			args:     []string{"$$x$$", "--html", "--standalone", "--title", "Note"},
			contains: []string{"<!DOCTYPE html>", "<title>Note</title>", "math-display"},
		},
		{
			name:     "markdown body",
			args:     []string{"**bold** $x$", "--html", "--body", "markdown"},
			contains: []string{"<strong>bold</strong>"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			te := newTestEnv(t, "", nil)
			code := runConvertCmd(context.Background(), tt.args, te.Environment)
			if code != ExitSuccess {
				t.Fatalf("exit code = %d, want %d; stderr: %s", code, ExitSuccess, te.stderr.String())
			}

			out := strings.TrimSpace(te.stdout.String())
			if tt.decode {
				raw, err := base64.URLEncoding.DecodeString(out)
				if err != nil {
					t.Fatalf("output is not URL-safe base64: %v", err)
				}
				out = string(raw)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRunConvertCmd_Stdin - Reads text from stdin when no argument is given
// ---------------------------------------------------------------------------

func TestRunConvertCmd_Stdin(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"--html"}, {"--html", "-"}} {
		te := newTestEnv(t, "Piped $a^2$", nil)
		if code := runConvertCmd(context.Background(), args, te.Environment); code != ExitSuccess {
			t.Fatalf("args %v: exit code = %d; stderr: %s", args, code, te.stderr.String())
		}
		if !strings.Contains(te.stdout.String(), "Piped ") {
			t.Errorf("args %v: output = %q", args, te.stdout.String())
		}
		if te.renderer.calls.Load() != 1 {
			t.Errorf("args %v: renderer calls = %d, want 1", args, te.renderer.calls.Load())
		}
	}
}

// ---------------------------------------------------------------------------
// TestRunConvertCmd_NoInput - Empty input exits 1 with a clear message
// ---------------------------------------------------------------------------

func TestRunConvertCmd_NoInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		args  []string
		stdin string
	}{
		{"no args and no stdin", nil, ""},
		{"blank argument", []string{"   "}, ""},
		{"blank stdin", nil, " \n\t"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			te := newTestEnv(t, tt.stdin, nil)
			code := runConvertCmd(context.Background(), tt.args, te.Environment)
			if code != ExitGeneral {
				t.Errorf("exit code = %d, want %d", code, ExitGeneral)
			}
			if !strings.Contains(te.stderr.String(), "No input provided") {
				t.Errorf("stderr = %q, want it to mention missing input", te.stderr.String())
			}
			if te.renderer.calls.Load() != 0 {
				t.Error("renderer called for empty input")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRunConvertCmd_OutputFile - Writes to --output and reports the path
// ---------------------------------------------------------------------------

func TestRunConvertCmd_OutputFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "message.b64")
	te := newTestEnv(t, "", nil)

	code := runConvertCmd(context.Background(), []string{"$x$", "-o", path}, te.Environment)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d; stderr: %s", code, te.stderr.String())
	}
	if !strings.Contains(te.stdout.String(), path) {
		t.Errorf("stdout = %q, want it to name %s", te.stdout.String(), path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if _, err := base64.URLEncoding.DecodeString(string(data)); err != nil {
		t.Errorf("file is not base64: %v", err)
	}
}

func TestRunConvertCmd_OutputFile_MissingDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing", "out.eml")
	te := newTestEnv(t, "", nil)

	code := runConvertCmd(context.Background(), []string{"$x$", "-o", path}, te.Environment)
	if code != ExitIO {
		t.Errorf("exit code = %d, want %d", code, ExitIO)
	}
	if !strings.Contains(te.stderr.String(), "hint:") {
		t.Errorf("stderr = %q, want a hint", te.stderr.String())
	}
}

// ---------------------------------------------------------------------------
// TestRunConvertCmd_Copy - Clipboard copy succeeds or only warns
// ---------------------------------------------------------------------------

func TestRunConvertCmd_Copy(t *testing.T) {
	t.Parallel()

	t.Run("copies the printed output", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t, "", nil)
		if code := runConvertCmd(context.Background(), []string{"$x$", "--html", "--copy"}, te.Environment); code != ExitSuccess {
			t.Fatalf("exit code = %d; stderr: %s", code, te.stderr.String())
		}
		if te.clipboard.text == "" || !strings.HasPrefix(te.stdout.String(), te.clipboard.text) {
			t.Errorf("clipboard = %q, stdout = %q", te.clipboard.text, te.stdout.String())
		}
		if !strings.Contains(te.stderr.String(), "Copied to clipboard") {
			t.Errorf("stderr = %q", te.stderr.String())
		}
	})

	t.Run("failure is a warning", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t, "", nil)
		te.clipboard.err = errors.New("no display")
		if code := runConvertCmd(context.Background(), []string{"$x$", "--copy"}, te.Environment); code != ExitSuccess {
			t.Fatalf("exit code = %d", code)
		}
		if !strings.Contains(te.stderr.String(), "warning: could not copy to clipboard") {
			t.Errorf("stderr = %q", te.stderr.String())
		}
	})
}

// ---------------------------------------------------------------------------
// TestRunConvertCmd_Errors - Failures map to exit codes and hints
// ---------------------------------------------------------------------------

func TestRunConvertCmd_Errors(t *testing.T) {
	t.Parallel()

	compileErr := fmt.Errorf("%w: Undefined control sequence.", mathmail.ErrCompile)
	missingErr := fmt.Errorf("%w: %q not found on PATH (%w)", mathmail.ErrDvipng, "dvipng", mathmail.ErrRendererUnavailable)

	tests := []struct {
		name      string
		args      []string
		renderErr error
		wantCode  int
		wantErr   []string
	}{
		{
			name:      "compile failure",
			args:      []string{`$\undefined$`},
			renderErr: compileErr,
			wantCode:  ExitGeneral,
			wantErr:   []string{"LaTeX compilation failed", `\\undefined`, "hint:"},
		},
		{
			name:      "dvipng missing",
			args:      []string{"$x$"},
			renderErr: missingErr,
			wantCode:  ExitRenderer,
			wantErr:   []string{"dvipng", "hint:"},
		},
		{
			name:     "invalid address",
			args:     []string{"$x$", "--to", "not an address"},
			wantCode: ExitUsage,
			wantErr:  []string{"invalid email address", "hint:"},
		},
		{
			name:     "invalid engine",
			args:     []string{"$x$", "--engine", "mathml"},
			wantCode: ExitUsage,
			wantErr:  []string{"engine"},
		},
		{
			name:     "dpi out of range",
			args:     []string{"$x$", "--dpi", "10"},
			wantCode: ExitUsage,
			wantErr:  []string{"dpi"},
		},
		{
			name:     "conflicting formats",
			args:     []string{"$x$", "--raw", "--html"},
			wantCode: ExitUsage,
			wantErr:  []string{"only one of"},
		},
		{
			name:     "unknown flag",
			args:     []string{"$x$", "--bogus"},
			wantCode: ExitUsage,
			wantErr:  []string{"bogus"},
		},
		{
			name:     "missing config",
			args:     []string{"$x$", "--config", "/nonexistent/mathmail.yaml"},
			wantCode: ExitUsage,
			wantErr:  []string{"config file not found"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			te := newTestEnv(t, "", nil)
			te.renderer.err = tt.renderErr

			code := runConvertCmd(context.Background(), tt.args, te.Environment)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d; stderr: %s", code, tt.wantCode, te.stderr.String())
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(te.stderr.String(), want) {
					t.Errorf("stderr missing %q:\n%s", want, te.stderr.String())
				}
			}
			if te.stdout.Len() != 0 {
				t.Errorf("stdout should be empty on failure, got %q", te.stdout.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRunConvertCmd_Help - Help flag prints convert usage
// ---------------------------------------------------------------------------

func TestRunConvertCmd_Help(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, "", nil)
	if code := runConvertCmd(context.Background(), []string{"--help"}, te.Environment); code != ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(te.stdout.String(), "Convert LaTeX expressions") {
		t.Errorf("help output = %q", te.stdout.String())
	}
}

// ---------------------------------------------------------------------------
// TestRunConvertCmd_EnvAndConfig - Precedence: flags > env > file > defaults
// ---------------------------------------------------------------------------

func TestRunConvertCmd_EnvAndConfig(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "mail.yaml")
	yaml := "message:\n  subject: From file\n  from: file@uni.example\noutput:\n  format: html\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("file sets format", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t, "", map[string]string{"MATHMAIL_CONFIG": cfgPath})
		if code := runConvertCmd(context.Background(), []string{"$x$"}, te.Environment); code != ExitSuccess {
			t.Fatalf("exit code = %d; stderr: %s", code, te.stderr.String())
		}
		if !strings.Contains(te.stdout.String(), "data:image/png") {
			t.Errorf("want HTML output from config file, got %q", te.stdout.String())
		}
	})

	t.Run("env overrides file and flag overrides env", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t, "", map[string]string{
			"MATHMAIL_CONFIG":  cfgPath,
			"MATHMAIL_FORMAT":  "mime",
			"MATHMAIL_SUBJECT": "From env",
		})
		args := []string{"$x$", "--subject", "From flag"}
		if code := runConvertCmd(context.Background(), args, te.Environment); code != ExitSuccess {
			t.Fatalf("exit code = %d; stderr: %s", code, te.stderr.String())
		}
		out := te.stdout.String()
		if !strings.Contains(out, "Subject: From flag") {
			t.Errorf("flag subject not applied:\n%s", out)
		}
		if !strings.Contains(out, "From: <file@uni.example>") {
			t.Errorf("file sender not applied:\n%s", out)
		}
	})

	t.Run("unknown variable warns", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t, "", map[string]string{"MATHMAIL_ENGIN": "browser"})
		if code := runConvertCmd(context.Background(), []string{"$x$"}, te.Environment); code != ExitSuccess {
			t.Fatalf("exit code = %d", code)
		}
		if !strings.Contains(te.stderr.String(), "unknown environment variable MATHMAIL_ENGIN") {
			t.Errorf("stderr = %q", te.stderr.String())
		}
	})
}

// ---------------------------------------------------------------------------
// TestRunConvertCmd_Cache - Redis cache serves repeated expressions
// ---------------------------------------------------------------------------

func TestRunConvertCmd_Cache(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	args := []string{"$x$ and $y$", "--html", "--cache", "--cache-addr", mr.Addr()}

	first := newTestEnv(t, "", nil)
	if code := runConvertCmd(context.Background(), args, first.Environment); code != ExitSuccess {
		t.Fatalf("first run exit code = %d; stderr: %s", code, first.stderr.String())
	}
	if got := first.renderer.calls.Load(); got != 2 {
		t.Fatalf("first run renderer calls = %d, want 2", got)
	}
	if len(mr.Keys()) != 2 {
		t.Errorf("cached keys = %v, want 2", mr.Keys())
	}

	second := newTestEnv(t, "", nil)
	if code := runConvertCmd(context.Background(), args, second.Environment); code != ExitSuccess {
		t.Fatalf("second run exit code = %d", code)
	}
	if got := second.renderer.calls.Load(); got != 0 {
		t.Errorf("second run renderer calls = %d, want 0 (cache hits)", got)
	}
	if first.stdout.String() != second.stdout.String() {
		t.Error("cached output differs from rendered output")
	}
}

func TestRunConvertCmd_CacheUnreachable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	te := newTestEnv(t, "", nil)
	args := []string{"$x$", "--html", "--cache", "--cache-addr", addr}
	if code := runConvertCmd(context.Background(), args, te.Environment); code != ExitSuccess {
		t.Fatalf("exit code = %d; stderr: %s", code, te.stderr.String())
	}
	if !strings.Contains(te.stderr.String(), "render cache unavailable") {
		t.Errorf("stderr = %q, want a cache warning", te.stderr.String())
	}
	if te.renderer.calls.Load() != 1 {
		t.Errorf("renderer calls = %d, want 1", te.renderer.calls.Load())
	}
}

// ---------------------------------------------------------------------------
// TestReadInput - Argument and stdin handling
// ---------------------------------------------------------------------------

func TestReadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		stdin   string
		want    string
		wantErr error
	}{
		{name: "args are joined", args: []string{"a", "$b$"}, want: "a $b$"},
		{name: "stdin", stdin: "from stdin", want: "from stdin"},
		{name: "dash reads stdin", args: []string{"-"}, stdin: "x", want: "x"},
		{name: "blank", args: []string{" "}, wantErr: ErrNoInput},
		{name: "invalid utf-8", stdin: "\xff\xfe", wantErr: ErrReadInput},
		{name: "too large", stdin: strings.Repeat("a", maxInputSize+1), wantErr: ErrInputTooLarge},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := readInput(tt.args, strings.NewReader(tt.stdin))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("readInput = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestCacheNamespace - Renderer settings partition the cache
// ---------------------------------------------------------------------------

func TestCacheNamespace(t *testing.T) {
	t.Parallel()

	latex := config.DefaultConfig()
	browser := config.DefaultConfig()
	browser.Render.Engine = config.EngineBrowser
	extra := config.DefaultConfig()
	extra.Render.Latex.Packages = append(extra.Render.Latex.Packages, "mhchem")

	seen := map[string]bool{}
	for _, cfg := range []*config.Config{latex, browser, extra} {
		ns := cacheNamespace(cfg)
		if seen[ns] {
			t.Errorf("namespace %q reused across different renderer settings", ns)
		}
		seen[ns] = true
	}
}

// ---------------------------------------------------------------------------
// TestBuildRenderer - Engine selection
// ---------------------------------------------------------------------------

func TestBuildRenderer(t *testing.T) {
	t.Parallel()

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig()
	r, err := buildRenderer(cfg, discard)
	if err != nil || r == nil {
		t.Fatalf("latex renderer: %v, %v", r, err)
	}

	cfg.Render.Engine = config.EngineBrowser
	r, err = buildRenderer(cfg, discard)
	if err != nil || r == nil {
		t.Fatalf("browser renderer: %v, %v", r, err)
	}

	cfg = config.DefaultConfig()
	cfg.Render.Latex.Preamble = "does-not-exist"
	if _, err := buildRenderer(cfg, discard); !errors.Is(err, mathmail.ErrPreambleNotFound) {
		t.Errorf("error = %v, want ErrPreambleNotFound", err)
	}
}
