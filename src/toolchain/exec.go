// Package toolchain runs the Java compiler and test-launcher subprocesses
// the orchestrator needs, applying the SIGTERM-then-SIGKILL cancellation
// discipline please's src/process/process.go uses for its own build-action
// subprocesses (see sendSignal/killProcess there), simplified to polytunnel's
// single-subprocess-at-a-time model: the orchestrator never runs more than
// one compiler or test-launcher invocation concurrently (spec §4.5 step 4:
// "a single invocation per source set").
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/steelcrab/polytunnel/src/errs"
)

var log = logging.MustGetLogger("toolchain")

// terminateGrace is how long a subprocess gets to exit after SIGTERM before
// it is sent SIGKILL.
const terminateGrace = 2 * time.Second

// Result captures a finished subprocess's streamed output and exit status.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes argv[0] with argv[1:] in dir, streaming stdout/stderr through
// to the caller while also buffering them for Result, and terminates the
// process cooperatively (SIGTERM, then SIGKILL after terminateGrace) if ctx
// is cancelled before it exits (spec §5 "cancellation is cooperative ...
// subprocess invocations are sent a terminate signal and then awaited").
func Run(ctx context.Context, dir string, argv []string, stdout, stderr io.Writer) (*Result, error) {
	if len(argv) == 0 {
		return nil, errors.New("toolchain: empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	setProcessGroup(cmd)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = io.MultiWriter(&outBuf, stdout)
	cmd.Stderr = io.MultiWriter(&errBuf, stderr)

	if err := cmd.Start(); err != nil {
		return nil, &errs.ToolchainError{Binary: argv[0], Cause: err}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return resultFrom(outBuf.String(), errBuf.String(), cmd, err)
	case <-ctx.Done():
		err := terminate(cmd, done)
		return resultFrom(outBuf.String(), errBuf.String(), cmd, err)
	}
}

func resultFrom(stdout, stderr string, cmd *exec.Cmd, waitErr error) (*Result, error) {
	result := &Result{Stdout: stdout, Stderr: stderr}
	if waitErr == nil {
		result.ExitCode = 0
		return result, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, waitErr
}

// terminate sends SIGTERM to the process group, then SIGKILL if it hasn't
// exited within terminateGrace (grounded on please's sendSignal), and always
// waits for cmd.Wait() to actually return before giving back control — done
// must be drained exactly once, here, since the caller no longer reads it.
func terminate(cmd *exec.Cmd, done <-chan error) error {
	if cmd.Process == nil {
		return <-done
	}
	signalGroup(cmd)
	select {
	case err := <-done:
		return err
	case <-time.After(terminateGrace):
		log.Warning("subprocess %s did not exit within %s of SIGTERM, sending SIGKILL", cmd.Path, terminateGrace)
		killGroup(cmd)
		return <-done
	}
}
