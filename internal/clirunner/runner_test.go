package clirunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zosbridge/commongo/pkg/manager"
	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

// writeStub drops an executable shell script into dir and returns its path.
func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestRunCapturesOutput(t *testing.T) {
	dir := t.TempDir()
	tool := writeStub(t, dir, "tool", `echo "out $1"; echo "err" >&2`)

	runner := Runner{Kind: rescapabilities.DB2, Timeout: 5 * time.Second}
	res, err := runner.Run(context.Background(), tool, "", "arg1")
	require.NoError(t, err)

	assert.True(t, res.Succeeded())
	assert.Equal(t, "out arg1\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRunPassesStdin(t *testing.T) {
	dir := t.TempDir()
	tool := writeStub(t, dir, "tool", `cat`)

	runner := Runner{Kind: rescapabilities.IBMMQ, Timeout: 5 * time.Second}
	res, err := runner.Run(context.Background(), tool, "hello\n")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	tool := writeStub(t, dir, "tool", `echo "SQL1024N not connected" >&2; exit 4`)

	runner := Runner{Kind: rescapabilities.DB2, Timeout: 5 * time.Second}
	res, err := runner.Run(context.Background(), tool, "")
	require.NoError(t, err)

	assert.False(t, res.Succeeded())
	assert.Equal(t, 4, res.ExitCode)
	assert.Equal(t, "SQL1024N not connected", res.ErrorText())
}

func TestRunErrorTextPrefersStderr(t *testing.T) {
	res := Result{Stdout: "stdout text", Stderr: "stderr text"}
	assert.Equal(t, "stderr text", res.ErrorText())

	res = Result{Stdout: "  diagnostics on stdout  "}
	assert.Equal(t, "diagnostics on stdout", res.ErrorText())
}

func TestRunTimeout(t *testing.T) {
	dir := t.TempDir()
	tool := writeStub(t, dir, "tool", `sleep 5`)

	runner := Runner{Kind: rescapabilities.DB2, Timeout: 100 * time.Millisecond}
	_, err := runner.Run(context.Background(), tool, "")
	require.Error(t, err)
	assert.True(t, manager.IsTimeout(err))
}

func TestRunMissingTool(t *testing.T) {
	runner := Runner{Kind: rescapabilities.DB2, Timeout: time.Second}
	_, err := runner.Run(context.Background(), filepath.Join(t.TempDir(), "no-such-tool"), "")
	require.Error(t, err)
	assert.False(t, manager.IsTimeout(err))
}
