package logging

import (
	"testing"

	"github.com/cihub/seelog"
	"github.com/stretchr/testify/assert"
)

func TestDefaultLoggerIsDisabledAndSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		Debug("hello")
		Infof("count=%d", 1)
		Warn("careful")
		Flush()
	})
}

func TestSetLoggerNilFallsBackToDisabled(t *testing.T) {
	defer SetLogger(nil)
	SetLogger(nil)
	assert.Equal(t, seelog.Disabled, current)
}

func TestSetLoggerInstallsGivenLogger(t *testing.T) {
	defer SetLogger(nil)
	logger, err := seelog.LoggerFromWriterWithMinLevel(discardWriter{}, seelog.InfoLvl)
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	SetLogger(logger)
	assert.Equal(t, logger, current)
	assert.NotPanics(t, func() { Info("installed") })
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
