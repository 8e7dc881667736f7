//go:build !windows

package remediation

import (
	"context"
	"os/exec"
)

// shellCommand wraps commandLine in the POSIX shell, as popen(3) does
func shellCommand(ctx context.Context, commandLine string) *exec.Cmd {
	return exec.CommandContext(ctx, "/bin/sh", "-c", commandLine)
}
