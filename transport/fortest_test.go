package transport

import (
	"context"
	"errors"
	"testing"
)

func TestPair(t *testing.T) {
	left, right := NewPair(t.Context())

	if err := left.WriteJSON("hello"); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var out string
	if err := right.ReadJSON(&out); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if out != "hello" {
		t.Errorf("bad send: %q", out)
	}
}

func TestPairClosed(t *testing.T) {
	cause := errors.New("gone")
	ctx, cancel := context.WithCancelCause(t.Context())
	left, right := NewBufferPair(ctx, 0)
	cancel(cause)

	if err := left.WriteJSON(1); !errors.Is(err, cause) {
		t.Errorf("expected cause on write, got: %v", err)
	}
	var v int
	if err := right.ReadJSON(&v); !errors.Is(err, cause) {
		t.Errorf("expected cause on read, got: %v", err)
	}
}
