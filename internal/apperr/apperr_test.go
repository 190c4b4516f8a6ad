package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfUnwrapsThroughWrappedErrors(t *testing.T) {
	base := New(KindInsufficient, "not enough cash")
	wrapped := fmt.Errorf("buy stock: %w", base)
	if got := KindOf(wrapped); got != KindInsufficient {
		t.Fatalf("expected %s, got %s", KindInsufficient, got)
	}
}

func TestKindOfDefaultsToInternalForUntypedErrors(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("expected %s for untyped error, got %s", KindInternal, got)
	}
}

func TestWrapKeepsCauseInErrorString(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindStoreDown, "query users", cause)
	if err.Unwrap() != cause {
		t.Fatalf("expected Unwrap to return the cause")
	}
	want := "STORE_UNAVAILABLE: query users: connection refused"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
}

func TestAsStopsAtFirstNonUnwrappable(t *testing.T) {
	var target *Error
	if As(errors.New("plain"), &target) {
		t.Fatalf("expected As to fail for a plain error")
	}
}
