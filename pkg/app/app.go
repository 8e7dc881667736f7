// Package app wires configuration, logging, pinning, probing and
// remediation into a running watchdog for the two command entry points.
package app

import (
	"context"
	"fmt"
	"io"

	sprintfLogging "github.com/core-tools/hsu-core/pkg/logging/sprintf"

	"github.com/core-tools/hsu-watchdog/pkg/config"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/metrics"
	"github.com/core-tools/hsu-watchdog/pkg/pinning"
	"github.com/core-tools/hsu-watchdog/pkg/probe"
	"github.com/core-tools/hsu-watchdog/pkg/remediation"
	"github.com/core-tools/hsu-watchdog/pkg/watchdog"
)

// Process exit codes reported before the loop starts
const (
	ExitOK                 = 0
	ExitUsage              = 1
	ExitCertificateMissing = 2
	ExitCertificateEmpty   = 3
)

// ExitCode maps a startup error to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if kind, ok := pinning.LoadKindOf(err); ok {
		switch kind {
		case pinning.LoadKindMissing:
			return ExitCertificateMissing
		case pinning.LoadKindEmpty:
			return ExitCertificateEmpty
		}
	}
	return ExitUsage
}

// NewLogFuncs selects the log backend for cfg. The returned sync function
// flushes buffered output and is safe to call more than once.
func NewLogFuncs(cfg config.LogConfig) (logging.LogFuncs, func(), error) {
	if cfg.Format == "text" {
		logger := sprintfLogging.NewStdSprintfLogger()
		funcs := logging.LogFuncs{
			Infof:  logger.Infof,
			Warnf:  logger.Warnf,
			Errorf: logger.Errorf,
		}
		if cfg.Level == "debug" {
			funcs.Debugf = logger.Debugf
		}
		return funcs, func() {}, nil
	}

	backend, err := logging.NewZapBackend(logging.ZapConfig{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: "stderr",
	})
	if err != nil {
		return logging.LogFuncs{}, nil, err
	}
	return backend.LogFuncs(), func() { _ = backend.Sync() }, nil
}

// Build constructs the watchdog described by cfg. The pinned certificate is
// read here so that a missing or empty pin stops the process at startup.
func Build(cfg *config.Config, funcs logging.LogFuncs) (*watchdog.Watchdog, error) {
	logger := logging.NewLogger(logging.ModulePrefix("watchdog"), funcs)

	pin, err := pinning.LoadPinnedCertificate(cfg.Certificate)
	if err != nil {
		return nil, err
	}
	logger.Infof("Pinned certificate loaded, path: %s, bytes: %d", pin.Path(), pin.Len())

	prober, err := probe.New(cfg.Target, pin, cfg.ProbeOptions(),
		logging.NewLogger(logging.ModulePrefix("probe"), funcs))
	if err != nil {
		return nil, err
	}

	remediationLogger := logging.NewLogger(logging.ModulePrefix("remediation"), funcs)
	dispatcher, err := remediation.NewDispatcher(cfg.Commands,
		remediation.NewShellRunner(remediationLogger), remediationLogger)
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder(cfg.MetricsFile,
		logging.NewLogger(logging.ModulePrefix("metrics"), funcs))

	return watchdog.New(cfg.Delay, prober, dispatcher, logger, watchdog.WithObserver(recorder))
}

// Main parses argv, builds the watchdog and runs it until the process is
// killed. Startup errors are written to stderr.
func Main(variant config.Variant, argv []string, stderr io.Writer) int {
	cfg, err := config.Parse(variant, argv)
	if err != nil {
		if config.IsHelp(err) {
			fmt.Fprintln(stderr, err)
			return ExitOK
		}
		fmt.Fprintf(stderr, "Command line parsing failed: %v\n", err)
		return ExitUsage
	}

	funcs, sync, err := NewLogFuncs(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return ExitUsage
	}
	defer sync()

	logger := logging.NewLogger(logging.ModulePrefix(string(variant)), funcs)
	logger.Infof("Starting, target: %s, delay: %v, timeout: %v", cfg.Target, cfg.Delay, cfg.Timeout)
	if len(cfg.ExtraArgs) > 0 {
		logger.Debugf("Ignoring extra arguments: %v", cfg.ExtraArgs)
	}

	w, err := Build(cfg, funcs)
	if err != nil {
		logger.Errorf("Failed to start watchdog: %v", err)
		fmt.Fprintf(stderr, "%v\n", err)
		return ExitCode(err)
	}

	// the loop only ends with the process
	_ = w.Run(context.Background())
	return ExitOK
}
