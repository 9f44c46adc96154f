//go:build unix

package recognizer

import (
	"errors"
	"os/exec"
	"syscall"
)

// setProcessGroup starts the recognizer as the leader of its own process
// group so that helpers it forks can be killed with it.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcess kills the recognizer's whole process group.
func killProcess(cmd *exec.Cmd) error {
	err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
