package log

import (
	"errors"
	"testing"
)

func TestLogNotInitialized(t *testing.T) {
	testLog(t)
}

func TestLog(t *testing.T) {
	cfg := Config{
		Environment: EnvironmentDevelopment,
		Level:       "debug",
		Outputs:     []string{"stderr"},
	}

	Init(cfg)
	testLog(t)
}

func testLog(t *testing.T) {
	t.Helper()
	Info("Test log.Info", " value is ", 10)
	Infof("Test log.Infof %d", 10)
	Debugf("Test log.Debugf %d", 10)
	Error("Test log.Error", " value is ", 10)
	Errorf("Test log.Errorf %d", 10)
	Error("Test log.Error with err ", errors.New("this is a test error"))
	Warnf("Test log.Warnf %d", 10)

	l := WithFields("module", "test")
	l.Info("Test Logger.Info")
	l.Debugf("Test Logger.Debugf %d", 10)
}
