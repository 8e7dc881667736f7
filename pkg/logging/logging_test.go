package logging

import (
	"fmt"
	"testing"

	"github.com/core-tools/hsu-watchdog/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	lines []string
}

func (r *recorder) record(level string) LogFunc {
	return func(format string, args ...interface{}) {
		r.lines = append(r.lines, level+" "+fmt.Sprintf(format, args...))
	}
}

func TestLogger_PrefixAndLevels(t *testing.T) {
	rec := &recorder{}
	log := NewLogger("module: probe , ", LogFuncs{
		Debugf: rec.record("D"),
		Infof:  rec.record("I"),
		Warnf:  rec.record("W"),
		Errorf: rec.record("E"),
	})

	log.Debugf("dial %s", "example.com:443")
	log.Infof("signal: %d", 3)
	log.Warnf("mismatch")
	log.Errorf("failed: %v", "boom")
	log.LogLevelf(LogLevelInfo, "via level")

	assert.Equal(t, []string{
		"D module: probe , dial example.com:443",
		"I module: probe , signal: 3",
		"W module: probe , mismatch",
		"E module: probe , failed: boom",
		"I module: probe , via level",
	}, rec.lines)
}

func TestLogger_LogLevelfTakesPrecedence(t *testing.T) {
	var levels []int
	log := NewLogger("", LogFuncs{
		LogLevelf: func(level int, format string, args ...interface{}) {
			levels = append(levels, level)
		},
		Infof: func(format string, args ...interface{}) {
			t.Fatal("Infof must not be called when LogLevelf is set")
		},
	})

	log.Infof("x")
	log.Errorf("y")

	assert.Equal(t, []int{LogLevelInfo, LogLevelError}, levels)
}

func TestLogger_NilFuncsAreDropped(t *testing.T) {
	assert.NotPanics(t, func() {
		log := NewNopLogger()
		log.Debugf("a")
		log.Infof("b")
		log.Warnf("c")
		log.Errorf("d")
		log.LogLevelf(42, "unknown level")
	})
}

func TestModulePrefix(t *testing.T) {
	assert.Equal(t, "module: watchdog , ", ModulePrefix("watchdog"))
}

func TestNewZapBackend(t *testing.T) {
	backend, err := NewZapBackend(ZapConfig{Level: "debug", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	funcs := backend.LogFuncs()
	assert.NotNil(t, funcs.Debugf)
	assert.NotNil(t, funcs.Infof)
	assert.NotNil(t, funcs.Warnf)
	assert.NotNil(t, funcs.Errorf)

	_, err = NewZapBackend(ZapConfig{Level: "verbose"})
	assert.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
