package monitoring

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op that must not call the previous logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
	if Debugf == nil {
		t.Fatal("Debugf should not be nil by default")
	}

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()
	Logf("test message: %s", "value")
	Debugf("debug message: %s", "value")
}

func TestUseLogger_Levels(t *testing.T) {
	origLogf, origDebugf := Logf, Debugf
	defer func() { Logf, Debugf = origLogf, origDebugf }()

	var buf bytes.Buffer
	UseLogger(NewLogger(&buf, "info"))
	Logf("loaded %d records", 10)
	Debugf("cache hit for %s", "data.csv")

	out := buf.String()
	if !strings.Contains(out, "loaded 10 records") {
		t.Errorf("expected info message in output, got %q", out)
	}
	if strings.Contains(out, "cache hit") {
		t.Errorf("debug message should be filtered at info level, got %q", out)
	}

	buf.Reset()
	UseLogger(NewLogger(&buf, "debug"))
	Debugf("cache hit for %s", "data.csv")
	if !strings.Contains(buf.String(), "cache hit for data.csv") {
		t.Errorf("expected debug message, got %q", buf.String())
	}
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "chatty")
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestUseLogger_Nil(t *testing.T) {
	origLogf, origDebugf := Logf, Debugf
	defer func() { Logf, Debugf = origLogf, origDebugf }()

	UseLogger(nil)
	Logf("muted")
	Debugf("muted")
}
