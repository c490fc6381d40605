package notify

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotifierWritesStructuredEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLog(zap.New(core))

	err := n.Notify(context.Background(), Event{
		Type:     EventLowStock,
		BranchID: "branch-main",
		EntityID: "inv-main-softener",
		Payload:  map[string]any{"current_stock": 3},
		At:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	entries := logs.FilterField(zap.String("type", EventLowStock)).All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 event log entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "notify" {
		t.Fatalf("expected notify logger, got %q", entries[0].LoggerName)
	}
}

func TestAlertKeyIsPerItem(t *testing.T) {
	if alertKey("a") == alertKey("b") {
		t.Fatalf("expected distinct keys per item")
	}
}
