package clipboard

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"testing"
)

// fakeRunner reports only the tools in installed and records the last run.
type fakeRunner struct {
	installed map[string]bool
	fail      error
	ran       string
	args      []string
	stdin     string
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.installed[name] {
		return "/usr/bin/" + name, nil
	}
	return "", exec.ErrNotFound
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, stdin io.Reader) error {
	f.ran = name
	f.args = args
	data, _ := io.ReadAll(stdin)
	f.stdin = string(data)
	return f.fail
}

func newTestWriter(goos string, env map[string]string, r *fakeRunner) *Writer {
	return &Writer{
		runner: r,
		goos:   goos,
		getenv: func(k string) string { return env[k] },
	}
}

func TestWriter_Write(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		goos      string
		env       map[string]string
		installed []string
		wantTool  string
		wantArgs  int
	}{
		{name: "macos", goos: "darwin", installed: []string{"pbcopy"}, wantTool: "pbcopy"},
		{name: "windows", goos: "windows", installed: []string{"clip.exe"}, wantTool: "clip.exe"},
		{name: "wayland first", goos: "linux", env: map[string]string{"WAYLAND_DISPLAY": "wayland-0"}, installed: []string{"wl-copy", "xclip"}, wantTool: "wl-copy"},
		{name: "x11 ignores wl-copy", goos: "linux", installed: []string{"wl-copy", "xclip"}, wantTool: "xclip", wantArgs: 2},
		{name: "xsel fallback", goos: "linux", installed: []string{"xsel"}, wantTool: "xsel", wantArgs: 2},
		{name: "wsl", goos: "linux", installed: []string{"clip.exe"}, wantTool: "clip.exe"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &fakeRunner{installed: map[string]bool{}}
			for _, name := range tt.installed {
				r.installed[name] = true
			}
			w := newTestWriter(tt.goos, tt.env, r)

			if err := w.Write(context.Background(), "payload"); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if r.ran != tt.wantTool || len(r.args) != tt.wantArgs {
				t.Errorf("ran %s %v, want %s with %d args", r.ran, r.args, tt.wantTool, tt.wantArgs)
			}
			if r.stdin != "payload" {
				t.Errorf("stdin = %q", r.stdin)
			}
			if tool, err := w.Tool(); err != nil || tool != tt.wantTool {
				t.Errorf("Tool() = %q, %v", tool, err)
			}
		})
	}
}

func TestWriter_Write_Unavailable(t *testing.T) {
	t.Parallel()

	w := newTestWriter("linux", nil, &fakeRunner{})
	if err := w.Write(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
	if _, err := w.Tool(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Tool error = %v", err)
	}
}

func TestWriter_Write_ToolFails(t *testing.T) {
	t.Parallel()

	boom := errors.New("exit status 1")
	w := newTestWriter("darwin", nil, &fakeRunner{installed: map[string]bool{"pbcopy": true}, fail: boom})
	if err := w.Write(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("error = %v, want tool failure", err)
	}
}
