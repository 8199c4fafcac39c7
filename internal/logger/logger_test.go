package logger

import (
	"context"
	"testing"
)

func TestWithRequestID_And_RequestIDFromContext(t *testing.T) {
	ctx := context.Background()
	requestID := "req-12345"

	// Initially empty
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("RequestIDFromContext() on empty ctx = %v, want empty", got)
	}

	// After setting
	ctx = WithRequestID(ctx, requestID)
	if got := RequestIDFromContext(ctx); got != requestID {
		t.Errorf("RequestIDFromContext() = %v, want %v", got, requestID)
	}
}

func TestWithOwner_And_OwnerFromContext(t *testing.T) {
	ctx := context.Background()

	if got := OwnerFromContext(ctx); got != "" {
		t.Errorf("OwnerFromContext() on empty ctx = %v, want empty", got)
	}

	ctx = WithOwner(ctx, "user-42")
	if got := OwnerFromContext(ctx); got != "user-42" {
		t.Errorf("OwnerFromContext() = %v, want user-42", got)
	}
}

func TestFromContext_AttachesFields(t *testing.T) {
	base := New()
	ctx := context.Background()

	// Without context fields - should return base logger (not nil)
	logger := FromContext(ctx, base)
	if logger == nil {
		t.Error("FromContext() returned nil")
	}

	ctx = WithRequestID(ctx, "req-67890")
	ctx = WithOwner(ctx, "user-1")
	enriched := FromContext(ctx, base)
	if enriched == nil {
		t.Error("FromContext() with fields returned nil")
	}
}

func TestNew_ReturnsLogger(t *testing.T) {
	logger := New()
	if logger == nil {
		t.Error("New() returned nil")
	}
}
