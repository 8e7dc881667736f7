//go:build windows

package remediation

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

// shellCommand wraps commandLine in cmd.exe. The command line is passed
// verbatim so the interpreter, not Go's argument quoting, parses it.
func shellCommand(ctx context.Context, commandLine string) *exec.Cmd {
	interpreter := os.Getenv("ComSpec")
	if interpreter == "" {
		interpreter = filepath.Join(os.Getenv("SystemRoot"), "System32", "cmd.exe")
	}

	cmd := exec.CommandContext(ctx, interpreter)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine: `"` + interpreter + `" /S /C "` + commandLine + `"`,
	}
	return cmd
}
