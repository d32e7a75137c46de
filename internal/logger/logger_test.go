package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetupDebugLevel(t *testing.T) {
	t.Cleanup(func() { SetGlobal(nil, false) })

	var buf bytes.Buffer
	Setup(&buf, true)

	if !IsDebug() {
		t.Error("IsDebug() = false after debug setup")
	}
	Get().Debug("resolved sources", "files", 2)
	if !strings.Contains(buf.String(), "resolved sources") || !strings.Contains(buf.String(), "files=2") {
		t.Errorf("debug line missing from output: %q", buf.String())
	}
}

func TestSetupInfoLevel(t *testing.T) {
	t.Cleanup(func() { SetGlobal(nil, false) })

	var buf bytes.Buffer
	Setup(&buf, false)

	Get().Debug("hidden")
	Get().Info("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("debug line written at info level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("info line missing: %q", buf.String())
	}
}
