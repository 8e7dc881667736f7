package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/probe"
	"github.com/core-tools/hsu-watchdog/pkg/remediation"
	"github.com/core-tools/hsu-watchdog/pkg/watchdog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report(outcome probe.Outcome, action remediation.Action) watchdog.CycleReport {
	return watchdog.CycleReport{
		ID:       "cycle",
		Started:  time.Unix(1700000000, 0),
		Duration: 2 * time.Second,
		Outcome:  outcome,
		Action:   action,
	}
}

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder("", logging.NewNopLogger())

	r.ObserveCycle(report(probe.Success(5), remediation.ActionHealthy))
	r.ObserveCycle(report(probe.Success(1), remediation.ActionNone))
	r.ObserveCycle(report(probe.Failure(probe.KindNetworkFailure, nil), remediation.ActionRepair))
	r.ObserveCycle(report(probe.Failure(probe.KindCertificateMismatch, nil), remediation.ActionRepair))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.cycles.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues("network_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues("certificate_mismatch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.remediations.WithLabelValues("repair")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.remediations.WithLabelValues("healthy")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.remediations), "cycles without a command are not remediations")
	assert.Equal(t, 1.0, testutil.ToFloat64(r.signal), "failed cycles keep the last successful signal")
	assert.Equal(t, 1700000002.0, testutil.ToFloat64(r.lastCycle))
}

func TestRecorder_WritesTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.prom")
	r := NewRecorder(path, logging.NewNopLogger())

	r.ObserveCycle(report(probe.Success(3), remediation.ActionHealthy))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, `watchdog_cycles_total{outcome="success"} 1`), content)
	assert.True(t, strings.Contains(content, `watchdog_remediations_total{action="healthy"} 1`), content)
	assert.False(t, strings.Contains(content, `action="none"`), content)
}

func TestRecorder_UnwritablePathIsNotFatal(t *testing.T) {
	r := NewRecorder(filepath.Join(t.TempDir(), "missing", "dir", "watchdog.prom"), logging.NewNopLogger())

	assert.NotPanics(t, func() {
		r.ObserveCycle(report(probe.Success(3), remediation.ActionHealthy))
	})
}
