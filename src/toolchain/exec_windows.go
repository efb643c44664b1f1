//go:build windows

package toolchain

import "os/exec"

// Windows has no process-group signal model analogous to POSIX SIGTERM; the
// best available cancellation is a hard kill of the process itself.
func setProcessGroup(cmd *exec.Cmd) {}

func signalGroup(cmd *exec.Cmd) {
	cmd.Process.Kill()
}

func killGroup(cmd *exec.Cmd) {
	cmd.Process.Kill()
}
