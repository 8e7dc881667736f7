package remediation

import (
	"context"
	"strings"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/probe"
)

// Action is the remediation chosen for a cycle
type Action int

const (
	ActionNone Action = iota
	ActionHealthy
	ActionRepair
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionHealthy:
		return "healthy"
	case ActionRepair:
		return "repair"
	default:
		return "unknown"
	}
}

// Commands holds the two operator supplied command lines
type Commands struct {
	Healthy string `yaml:"healthy"`
	Repair  string `yaml:"repair"`
}

// Validate checks that both command lines are present
func (c Commands) Validate() error {
	if strings.TrimSpace(c.Healthy) == "" {
		return errors.NewValidationError("healthy command is required", nil)
	}
	if strings.TrimSpace(c.Repair) == "" {
		return errors.NewValidationError("repair command is required", nil)
	}
	return nil
}

// Decide maps a probe outcome to an action:
//
//	success, healthy signal  -> ActionHealthy
//	success, weak signal     -> ActionNone
//	any failure              -> ActionRepair
func Decide(outcome probe.Outcome) Action {
	if !outcome.Succeeded() {
		return ActionRepair
	}
	if outcome.IsHealthy() {
		return ActionHealthy
	}
	return ActionNone
}

// Dispatcher runs at most one command per outcome and waits for it
type Dispatcher struct {
	commands Commands
	runner   Runner
	logger   logging.Logger
}

// NewDispatcher creates a dispatcher over runner
func NewDispatcher(commands Commands, runner Runner, logger logging.Logger) (*Dispatcher, error) {
	if err := commands.Validate(); err != nil {
		return nil, err
	}
	if runner == nil {
		return nil, errors.NewValidationError("runner is required", nil)
	}
	return &Dispatcher{
		commands: commands,
		runner:   runner,
		logger:   logger,
	}, nil
}

// Dispatch decides the action for outcome and, unless it is ActionNone,
// runs the matching command to completion. Command failures are logged and
// never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, outcome probe.Outcome) Action {
	action := Decide(outcome)

	var commandLine string
	switch action {
	case ActionHealthy:
		commandLine = d.commands.Healthy
	case ActionRepair:
		commandLine = d.commands.Repair
	default:
		d.logger.Debugf("No remediation required, signal: %d", outcome.Signal)
		return action
	}

	d.logger.Infof("Starting %s command, command: %s", action, commandLine)

	result := d.runner.Run(ctx, commandLine)
	if result.Err != nil {
		d.logger.Warnf("The %s command failed, exit code: %d, duration: %v, error: %v",
			action, result.ExitCode, result.Duration, result.Err)
	} else {
		d.logger.Infof("The %s command finished, duration: %v", action, result.Duration)
	}

	return action
}
