//go:build unix

package parallel

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts the worker in its own process group so that anything
// it forks is released with it.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// signalGroup signals the worker's process group, falling back to the
// process itself when the group is already gone.
func signalGroup(pid int, force bool) error {
	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}
	if err := unix.Kill(-pid, sig); err != nil {
		if err == unix.ESRCH {
			return unix.Kill(pid, sig)
		}
		return err
	}
	return nil
}
