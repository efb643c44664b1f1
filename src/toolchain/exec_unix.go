//go:build !windows

package toolchain

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts cmd in its own process group so terminate can signal
// the whole group (the compiler/test launcher may itself fork helpers).
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalGroup(cmd *exec.Cmd) {
	syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}

func killGroup(cmd *exec.Cmd) {
	syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
