package render

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/alnah/go-mathmail/internal/process"
)

// CommandRunner runs external tools. Tests substitute a fake.
type CommandRunner interface {
	// Run executes name with args in dir and returns combined output.
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
	// LookPath resolves name on PATH.
	LookPath(name string) (string, error)
}

// killGrace bounds how long Run waits for output pipes after a kill.
const killGrace = 2 * time.Second

// ExecRunner runs commands with os/exec, each in its own process group that
// is killed when ctx is done.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- binaries come from config, args are built here
	cmd.Dir = dir
	process.Isolate(cmd)
	cmd.Cancel = func() error {
		process.KillProcessGroup(cmd.Process.Pid)
		_ = cmd.Process.Kill()
		return nil
	}
	cmd.WaitDelay = killGrace

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		return out.Bytes(), ctxErr
	}
	return out.Bytes(), err
}

// LookPath implements CommandRunner.
func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

var _ CommandRunner = ExecRunner{}
