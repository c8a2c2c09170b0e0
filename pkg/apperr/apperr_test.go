package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_WalksWrappedChain(t *testing.T) {
	err := fmt.Errorf("get movie 42: %w", NotFound("movie %s not found", "42"))
	if got := KindOf(err); got != KindNotFound {
		t.Fatalf("expected %q, got %q", KindNotFound, got)
	}
	if !IsKind(err, KindNotFound) {
		t.Fatal("expected IsKind to match")
	}
}

func TestKindOf_ForeignErrorIsInternal(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("expected internal, got %q", got)
	}
	if got := KindOf(nil); got != "" {
		t.Fatalf("expected empty kind for nil, got %q", got)
	}
}

func TestUpstream_CarriesStatus(t *testing.T) {
	err := Upstream(503, "Service offline")
	if err.Status != 503 {
		t.Fatalf("expected status 503, got %d", err.Status)
	}
	if err.Error() != "upstream: status 503: Service offline" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestTransient_Unwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transient(cause, "GET /movie/1")
	if !errors.Is(err, cause) {
		t.Fatal("expected transient error to unwrap to its cause")
	}
	if Message(err) != "GET /movie/1" {
		t.Fatalf("unexpected message %q", Message(err))
	}
}
