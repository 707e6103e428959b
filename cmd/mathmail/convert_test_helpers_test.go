package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mathmail "github.com/alnah/go-mathmail"
	"github.com/alnah/go-mathmail/internal/config"
)

var fixedNow = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

// fakeRenderer returns a 1x1 PNG for every request, or err when set.
type fakeRenderer struct {
	err   error
	calls atomic.Int32
}

func (r *fakeRenderer) Render(_ context.Context, _ mathmail.RenderRequest) ([]byte, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fakeClipboard records the last text written.
type fakeClipboard struct {
	mu   sync.Mutex
	text string
	err  error
	tool string
}

func (c *fakeClipboard) Tool() (string, error) {
	if c.tool == "" {
		return "", errors.New("no clipboard tool available")
	}
	return c.tool, nil
}

func (c *fakeClipboard) Write(_ context.Context, text string) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	return nil
}

// testEnv bundles an Environment with its captured output.
type testEnv struct {
	*Environment
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
	renderer  *fakeRenderer
	clipboard *fakeClipboard
}

// newTestEnv returns an environment with an empty process environment, a
// fake renderer and a fake clipboard. vars become the MATHMAIL_* settings.
func newTestEnv(t *testing.T, stdin string, vars map[string]string) *testEnv {
	t.Helper()

	te := &testEnv{
		stdout:    &bytes.Buffer{},
		stderr:    &bytes.Buffer{},
		renderer:  &fakeRenderer{},
		clipboard: &fakeClipboard{tool: "fake-copy"},
	}
	var in io.Reader
	if stdin != "" {
		in = strings.NewReader(stdin)
	}
	te.Environment = &Environment{
		Now:    func() time.Time { return fixedNow },
		Stdin:  in,
		Stdout: te.stdout,
		Stderr: te.stderr,
		Getenv: func(key string) string { return vars[key] },
		Environ: func() []string {
			out := make([]string, 0, len(vars))
			for k, v := range vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		LookPath:  func(name string) (string, error) { return "", errors.New("not found: " + name) },
		Clipboard: te.clipboard,
		NewRenderer: func(*config.Config, *slog.Logger) (mathmail.Renderer, error) {
			return te.renderer, nil
		},
	}
	return te
}
