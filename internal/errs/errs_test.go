package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	err := New(KindNotFound, "job missing")
	if KindOf(err) != KindNotFound {
		t.Fatalf("KindOf = %q, want not_found", KindOf(err))
	}

	wrapped := fmt.Errorf("stage failed: %w", err)
	if KindOf(wrapped) != KindNotFound {
		t.Fatal("kind must survive fmt.Errorf wrapping")
	}

	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatal("plain errors default to internal")
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	retryable := []Kind{KindTransport, KindHTTPServerError, KindRateLimited}
	for _, k := range retryable {
		if !Retryable(New(k, "x")) {
			t.Fatalf("%s should be retryable", k)
		}
	}

	fatal := []Kind{KindHTTPClientError, KindRobotsDenied, KindNotFound, KindCancelled, KindSchemaViolation}
	for _, k := range fatal {
		if Retryable(New(k, "x")) {
			t.Fatalf("%s must not be retryable", k)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := Wrap(KindTransport, "fetch failed", cause)

	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause must be reachable via errors.Is")
	}
	if !Is(err, KindTransport) {
		t.Fatal("Is should match the kind")
	}
}
