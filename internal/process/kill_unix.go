//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// Isolate puts cmd in a new process group so KillProcessGroup reaches the
// children it spawns (latex calls out to kpathsea helpers).
func Isolate(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// KillProcessGroup sends SIGKILL to the process group led by pid.
func KillProcessGroup(pid int) {
	// Best-effort: callers also kill the leader through exec.Cmd.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
