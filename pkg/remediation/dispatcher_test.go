package remediation

import (
	"context"
	"testing"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/probe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	healthyCmd = "/opt/watchdog/start-server"
	repairCmd  = "/opt/watchdog/repair-network"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, commandLine string) Result {
	args := m.Called(ctx, commandLine)
	return args.Get(0).(Result)
}

func newTestDispatcher(t *testing.T, runner Runner) *Dispatcher {
	d, err := NewDispatcher(Commands{Healthy: healthyCmd, Repair: repairCmd}, runner, logging.NewNopLogger())
	require.NoError(t, err)
	return d
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		outcome  probe.Outcome
		expected Action
	}{
		{"success_signal_3", probe.Success(3), ActionHealthy},
		{"success_signal_large", probe.Success(4096), ActionHealthy},
		{"success_signal_2", probe.Success(2), ActionNone},
		{"success_signal_0", probe.Success(0), ActionNone},
		{"network_failure", probe.Failure(probe.KindNetworkFailure, errors.NewNetworkError("refused", nil)), ActionRepair},
		{"timeout", probe.Failure(probe.KindNetworkFailure, errors.NewTimeoutError("deadline", nil)), ActionRepair},
		{"certificate_mismatch", probe.Failure(probe.KindCertificateMismatch, errors.NewCertificateError("pin", nil)), ActionRepair},
		{"failure_ignores_signal", probe.Outcome{Kind: probe.KindNetworkFailure, Signal: 50}, ActionRepair},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Decide(tt.outcome))
		})
	}
}

func TestDispatcher_RunsExactlyOneCommand(t *testing.T) {
	tests := []struct {
		name     string
		outcome  probe.Outcome
		expected Action
		command  string
	}{
		{"healthy", probe.Success(3), ActionHealthy, healthyCmd},
		{"weak_signal", probe.Success(2), ActionNone, ""},
		{"network_failure", probe.Failure(probe.KindNetworkFailure, nil), ActionRepair, repairCmd},
		{"certificate_mismatch", probe.Failure(probe.KindCertificateMismatch, nil), ActionRepair, repairCmd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &MockRunner{}
			if tt.command != "" {
				runner.On("Run", mock.Anything, tt.command).Return(Result{}).Once()
			}

			action := newTestDispatcher(t, runner).Dispatch(context.Background(), tt.outcome)

			assert.Equal(t, tt.expected, action)
			runner.AssertExpectations(t)
			if tt.command == "" {
				runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
			} else {
				runner.AssertNumberOfCalls(t, "Run", 1)
			}
		})
	}
}

func TestDispatcher_SwallowsCommandFailure(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Run", mock.Anything, repairCmd).Return(Result{
		ExitCode: 127,
		Err:      errors.NewProcessError("command exited with failure", nil),
	}).Once()

	action := newTestDispatcher(t, runner).Dispatch(context.Background(), probe.Failure(probe.KindNetworkFailure, nil))

	assert.Equal(t, ActionRepair, action)
	runner.AssertExpectations(t)
}

func TestNewDispatcher_Validation(t *testing.T) {
	runner := &MockRunner{}

	_, err := NewDispatcher(Commands{Repair: repairCmd}, runner, logging.NewNopLogger())
	assert.True(t, errors.IsValidationError(err))

	_, err = NewDispatcher(Commands{Healthy: healthyCmd, Repair: "   "}, runner, logging.NewNopLogger())
	assert.True(t, errors.IsValidationError(err))

	_, err = NewDispatcher(Commands{Healthy: healthyCmd, Repair: repairCmd}, nil, logging.NewNopLogger())
	assert.True(t, errors.IsValidationError(err))
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "none", ActionNone.String())
	assert.Equal(t, "healthy", ActionHealthy.String())
	assert.Equal(t, "repair", ActionRepair.String())
	assert.Equal(t, "unknown", Action(7).String())
}
