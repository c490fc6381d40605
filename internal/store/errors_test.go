package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestAbortErrorKeepsCauseVisible(t *testing.T) {
	cause := &InsufficientStockError{ItemID: "inv-1", Category: "DETERGENT", Available: 0, Requested: 1}
	err := fmt.Errorf("transition: %w", &AbortError{Op: "transition_order", Err: cause})

	if !errors.Is(err, ErrTransactionAborted) {
		t.Fatalf("expected abort sentinel")
	}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock sentinel")
	}
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) || stockErr.Category != "DETERGENT" {
		t.Fatalf("expected structured stock error, got %v", err)
	}
	if !IsClientError(err) {
		t.Fatalf("insufficient stock must classify as a client error")
	}
}

func TestConflictIsRetryableNotClient(t *testing.T) {
	err := &AbortError{Op: "update_order", Err: &ConflictError{Op: "commit", Err: errors.New("40001")}}
	if !IsRetryable(err) {
		t.Fatalf("expected conflict to be retryable")
	}
	if IsClientError(err) {
		t.Fatalf("conflict must not be a client error")
	}
	if !IsRetryable(context.DeadlineExceeded) {
		t.Fatalf("expected deadline to be retryable")
	}
}

func TestStructuredErrorMessages(t *testing.T) {
	cases := map[string]error{
		"order ord-1 not found":                     NotFound("order", "ord-1"),
		"items: at least one item is required":      Invalid("items", "at least one item is required"),
		"cannot move order from DELIVERED to READY": &TransitionError{From: "DELIVERED", To: "READY"},
		"insufficient SOFTENER: available 0, requested 2": &InsufficientStockError{
			ItemID: "inv-2", Category: "SOFTENER", Requested: 2,
		},
	}
	for want, err := range cases {
		if err.Error() != want {
			t.Fatalf("expected %q, got %q", want, err.Error())
		}
	}
}
