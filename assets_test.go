package mathmail

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewAssetLoader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "styles"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "styles", "custom.css"), []byte("p{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	loader, err := NewAssetLoader(dir)
	if err != nil {
		t.Fatalf("NewAssetLoader: %v", err)
	}

	tests := []struct {
		name    string
		load    func() (string, error)
		want    string
		wantErr error
	}{
		{name: "custom style", load: func() (string, error) { return loader.LoadStyle("custom") }, want: "p{}"},
		{name: "embedded style fallback", load: func() (string, error) { return loader.LoadStyle(DefaultStyle) }, want: "img.math-display"},
		{name: "embedded template", load: func() (string, error) { return loader.LoadTemplate("document") }, want: "{{.Body}}"},
		{name: "embedded preamble", load: func() (string, error) { return loader.LoadPreamble(DefaultPreamble) }, want: `\begin{document}`},
		{name: "missing style", load: func() (string, error) { return loader.LoadStyle("nope") }, wantErr: ErrStyleNotFound},
		{name: "missing template", load: func() (string, error) { return loader.LoadTemplate("nope") }, wantErr: ErrTemplateNotFound},
		{name: "missing preamble", load: func() (string, error) { return loader.LoadPreamble("nope") }, wantErr: ErrPreambleNotFound},
		{name: "invalid name", load: func() (string, error) { return loader.LoadStyle("../x") }, wantErr: ErrStyleNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.load()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("content missing %q", tt.want)
			}
		})
	}
}

func TestNewAssetLoader_InvalidPath(t *testing.T) {
	t.Parallel()

	if _, err := NewAssetLoader(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrInvalidAssetPath) {
		t.Errorf("error = %v, want ErrInvalidAssetPath", err)
	}
}
