package tools

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecRunnerMissingBinary(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), "storesync-definitely-missing-binary")
	require.Error(t, err)
	require.Equal(t, ExitCommandNotFound, res.ExitCode)
}

func TestExecRunnerCapturesOutputAndExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	res, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2; exit 3")
	require.Error(t, err)
	require.Equal(t, int32(3), res.ExitCode)
	require.Equal(t, "out\nerr", res.Combined())
}

func TestResultCombinedSingleStream(t *testing.T) {
	require.Equal(t, "boom", Result{Stderr: []byte(" boom \n")}.Combined())
	require.Equal(t, "ok", Result{Stdout: []byte("ok\n")}.Combined())
}
