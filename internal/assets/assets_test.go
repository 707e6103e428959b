package assets

// Notes:
// - EmbeddedLoader: every built-in asset loads and parses as the template
//   kind its consumer expects.
// - FilesystemLoader / AssetResolver: overrides, fallback and traversal
//   protection are tested on temp directories.

import (
	"errors"
	htmltemplate "html/template"
	"os"
	"path/filepath"
	"strings"
	"testing"
	texttemplate "text/template"
)

// ---------------------------------------------------------------------------
// TestEmbeddedLoader - Built-in assets
// ---------------------------------------------------------------------------

func TestEmbeddedLoader(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()

	tests := []struct {
		name        string
		load        func(string) (string, error)
		asset       string
		wantContain string
		wantErr     error
	}{
		{name: "default style", load: loader.LoadStyle, asset: DefaultStyleName, wantContain: "img.math-display"},
		{name: "document template", load: loader.LoadTemplate, asset: DocumentTemplate, wantContain: "{{.Body}}"},
		{name: "mathjax template", load: loader.LoadTemplate, asset: MathJaxTemplate, wantContain: "{{.ScriptURL}}"},
		{name: "default preamble", load: loader.LoadPreamble, asset: DefaultPreambleName, wantContain: `\documentclass`},
		{name: "missing style", load: loader.LoadStyle, asset: "nonexistent", wantErr: ErrStyleNotFound},
		{name: "missing template", load: loader.LoadTemplate, asset: "nonexistent", wantErr: ErrTemplateNotFound},
		{name: "missing preamble", load: loader.LoadPreamble, asset: "nonexistent", wantErr: ErrPreambleNotFound},
		{name: "traversal", load: loader.LoadStyle, asset: "../default", wantErr: ErrInvalidAssetName},
		{name: "extension", load: loader.LoadTemplate, asset: "document.html", wantErr: ErrInvalidAssetName},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.load(tt.asset)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(got, tt.wantContain) {
				t.Errorf("asset %q does not contain %q", tt.asset, tt.wantContain)
			}
		})
	}
}

func TestEmbeddedTemplatesParse(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()

	for _, name := range []string{DocumentTemplate, MathJaxTemplate} {
		src, err := loader.LoadTemplate(name)
		if err != nil {
			t.Fatalf("LoadTemplate(%q): %v", name, err)
		}
		if _, err := htmltemplate.New(name).Parse(src); err != nil {
			t.Errorf("template %q does not parse: %v", name, err)
		}
	}

	src, err := loader.LoadPreamble(DefaultPreambleName)
	if err != nil {
		t.Fatalf("LoadPreamble: %v", err)
	}
	tmpl, err := texttemplate.New("preamble").Parse(src)
	if err != nil {
		t.Fatalf("preamble does not parse: %v", err)
	}

	var out strings.Builder
	data := struct {
		Packages   []string
		Expression string
		Display    bool
	}{Packages: []string{"amsmath", "amssymb"}, Expression: `\frac{1}{2}`, Display: true}
	if err := tmpl.Execute(&out, data); err != nil {
		t.Fatalf("executing preamble: %v", err)
	}
	for _, want := range []string{`\usepackage{amsmath}`, `\usepackage{amssymb}`, `$\displaystyle \frac{1}{2}$`, `\end{document}`} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("preamble output missing %q:\n%s", want, out.String())
		}
	}
}

// ---------------------------------------------------------------------------
// TestValidateAssetName
// ---------------------------------------------------------------------------

func TestValidateAssetName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		wantErr bool
	}{
		{"default", false},
		{"my-style", false},
		{"my_style2", false},
		{"", true},
		{"a/b", true},
		{`a\b`, true},
		{"a.b", true},
		{"..", true},
		{"tab\there", true},
		{strings.Repeat("x", maxAssetNameLength+1), true},
	}

	for _, tt := range tests {
		err := ValidateAssetName(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateAssetName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("ValidateAssetName(%q) error = %v, want ErrInvalidAssetName", tt.input, err)
		}
	}
}

// ---------------------------------------------------------------------------
// TestFilesystemLoader - Custom directories
// ---------------------------------------------------------------------------

// writeAsset creates base/dir/file with content.
func writeAsset(t *testing.T, base, dir, file, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, dir, file), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestNewFilesystemLoader(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	for name, path := range map[string]string{
		"empty":     "",
		"missing":   "/nonexistent/mathmail/assets",
		"not a dir": file,
	} {
		if _, err := NewFilesystemLoader(path); !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("%s: error = %v, want ErrInvalidBasePath", name, err)
		}
	}

	if _, err := NewFilesystemLoader(t.TempDir()); err != nil {
		t.Errorf("valid directory: %v", err)
	}
}

func TestFilesystemLoader_Load(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeAsset(t, base, "styles", "plain.css", "body{}")
	writeAsset(t, base, "templates", "document.html", "<html>{{.Body}}</html>")
	writeAsset(t, base, "preambles", "physics.tex", `\usepackage{physics}`)

	loader, err := NewFilesystemLoader(base)
	if err != nil {
		t.Fatalf("NewFilesystemLoader: %v", err)
	}

	if got, err := loader.LoadStyle("plain"); err != nil || got != "body{}" {
		t.Errorf("LoadStyle = %q, %v", got, err)
	}
	if got, err := loader.LoadTemplate("document"); err != nil || got != "<html>{{.Body}}</html>" {
		t.Errorf("LoadTemplate = %q, %v", got, err)
	}
	if got, err := loader.LoadPreamble("physics"); err != nil || !strings.Contains(got, "physics") {
		t.Errorf("LoadPreamble = %q, %v", got, err)
	}
	if _, err := loader.LoadStyle("absent"); !errors.Is(err, ErrStyleNotFound) {
		t.Errorf("LoadStyle(absent) error = %v, want ErrStyleNotFound", err)
	}
}

func TestFilesystemLoader_SymlinkEscape(t *testing.T) {
	t.Parallel()

	outside := t.TempDir()
	writeAsset(t, outside, "", "secret.css", "stolen")

	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "styles"), 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(base, "styles", "evil.css")
	if err := os.Symlink(filepath.Join(outside, "secret.css"), link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	loader, err := NewFilesystemLoader(base)
	if err != nil {
		t.Fatalf("NewFilesystemLoader: %v", err)
	}
	if _, err := loader.LoadStyle("evil"); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("error = %v, want ErrPathTraversal", err)
	}
}

// ---------------------------------------------------------------------------
// TestAssetResolver - Custom first, embedded fallback
// ---------------------------------------------------------------------------

func TestAssetResolver(t *testing.T) {
	t.Parallel()

	t.Run("embedded only", func(t *testing.T) {
		t.Parallel()

		r, err := NewAssetResolver("")
		if err != nil {
			t.Fatalf("NewAssetResolver: %v", err)
		}
		if r.HasCustomLoader() {
			t.Error("HasCustomLoader = true without a path")
		}
		if _, err := r.LoadTemplate(DocumentTemplate); err != nil {
			t.Errorf("LoadTemplate: %v", err)
		}
	})

	t.Run("custom overrides and falls back", func(t *testing.T) {
		t.Parallel()

		base := t.TempDir()
		writeAsset(t, base, "styles", "default.css", "custom")

		r, err := NewAssetResolver(base)
		if err != nil {
			t.Fatalf("NewAssetResolver: %v", err)
		}
		if !r.HasCustomLoader() {
			t.Error("HasCustomLoader = false")
		}
		if got, _ := r.LoadStyle(DefaultStyleName); got != "custom" {
			t.Errorf("LoadStyle = %q, want custom override", got)
		}
		if got, err := r.LoadPreamble(DefaultPreambleName); err != nil || !strings.Contains(got, `\documentclass`) {
			t.Errorf("LoadPreamble fallback = %q, %v", got, err)
		}
	})

	t.Run("validation errors do not fall back", func(t *testing.T) {
		t.Parallel()

		r, err := NewAssetResolver(t.TempDir())
		if err != nil {
			t.Fatalf("NewAssetResolver: %v", err)
		}
		if _, err := r.LoadStyle("../x"); !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("error = %v, want ErrInvalidAssetName", err)
		}
	})

	t.Run("invalid custom path", func(t *testing.T) {
		t.Parallel()

		if _, err := NewAssetResolver("/nonexistent/mathmail"); !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("error = %v, want ErrInvalidBasePath", err)
		}
	})
}
