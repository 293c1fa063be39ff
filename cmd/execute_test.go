package cmd

import (
	"log/slog"
	"testing"
)

func TestPrintVersionInfo(t *testing.T) {
	if err := printVersionInfo(); err != nil {
		t.Errorf("printVersionInfo() = %v, want nil", err)
	}
}

func TestLogLevel(t *testing.T) {
	t.Setenv("DEBUG", "")
	if got := logLevel(); got != slog.LevelInfo {
		t.Errorf("logLevel() = %v, want info", got)
	}

	t.Setenv("DEBUG", "1")
	if got := logLevel(); got != slog.LevelDebug {
		t.Errorf("logLevel() with DEBUG = %v, want debug", got)
	}
}
