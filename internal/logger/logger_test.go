package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"laundrydesk/backend/internal/config"
)

func TestNewFallsBackToInfoOnUnknownLevel(t *testing.T) {
	log, err := New(config.LoggerConfig{Level: "loud", Encoding: "json"}, false)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("expected info level to be enabled")
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level to be disabled")
	}
}

func TestNewDevelopmentEnablesDebug(t *testing.T) {
	log, err := New(config.LoggerConfig{Level: "error", Encoding: "console"}, true)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level in development mode")
	}
}
