package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/Leganyst/cleaning-calendar/internal/config"
)

func TestNew_Levels(t *testing.T) {
	l, err := New(&config.LogConfig{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info must be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error must be enabled at warn level")
	}

	if _, err := New(&config.LogConfig{Level: "debug", Format: "console"}); err != nil {
		t.Fatalf("unexpected error for console logger: %v", err)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(&config.LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
