//go:build !windows

package remediation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedRunner() (*ShellRunner, *bytes.Buffer) {
	var out bytes.Buffer
	runner := NewShellRunner(logging.NewNopLogger())
	runner.Stdout = &out
	runner.Stderr = &out
	return runner, &out
}

func TestShellRunner_Success(t *testing.T) {
	runner, out := newBufferedRunner()

	result := runner.Run(context.Background(), "echo started; echo $((1 + 2))")

	require.NoError(t, result.Err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "started\n3\n", out.String())
}

func TestShellRunner_NonZeroExit(t *testing.T) {
	runner, _ := newBufferedRunner()

	result := runner.Run(context.Background(), "exit 3")

	require.Error(t, result.Err)
	assert.True(t, errors.IsProcessError(result.Err))
	assert.Equal(t, 3, result.ExitCode)
}

func TestShellRunner_CommandNotFound(t *testing.T) {
	runner, _ := newBufferedRunner()

	result := runner.Run(context.Background(), "/nonexistent/repair-tool --now")

	require.Error(t, result.Err)
	assert.Equal(t, 127, result.ExitCode)
}

func TestShellRunner_BlocksUntilExit(t *testing.T) {
	runner, _ := newBufferedRunner()
	marker := filepath.Join(t.TempDir(), "done")

	started := time.Now()
	result := runner.Run(context.Background(), "sleep 0.2 && touch '"+marker+"'")

	require.NoError(t, result.Err)
	assert.GreaterOrEqual(t, time.Since(started), 200*time.Millisecond)
	assert.GreaterOrEqual(t, result.Duration, 200*time.Millisecond)
	_, err := os.Stat(marker)
	assert.NoError(t, err, "command must have completed before Run returned")
}
