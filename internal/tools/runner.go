package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// ExitCommandNotFound is reported when the binary could not be started.
const ExitCommandNotFound int32 = 127

// CommandRunner abstracts shell command execution for host adapters.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// Result carries the captured output of one command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int32
}

// Combined returns stdout and stderr trimmed and joined for diagnostics.
func (r Result) Combined() string {
	out := strings.TrimSpace(string(r.Stdout))
	errOut := strings.TrimSpace(string(r.Stderr))
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

// ExecRunner executes commands on the local host.
type ExecRunner struct {
	Dir string
	Env []string
}

// Run executes name with args and normalizes the exit state.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = int32(exitErr.ExitCode())
		return res, err
	}

	res.ExitCode = 1
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		res.ExitCode = ExitCommandNotFound
	}
	return res, err
}
