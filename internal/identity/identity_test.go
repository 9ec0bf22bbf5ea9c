package identity

import (
	"context"
	"errors"
	"testing"
)

func TestNormalizeFoldsCaseAndWhitespace(t *testing.T) {
	if got := Normalize("  JDoe  "); got != "jdoe" {
		t.Fatalf("expected normalized claim jdoe, got %q", got)
	}
	if got := Normalize(""); got != "" {
		t.Fatalf("expected empty claim to stay empty, got %q", got)
	}
}

func TestFromContextReturnsStoredClaim(t *testing.T) {
	ctx := NewContext(context.Background(), "JDoe")
	claim, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claim != "jdoe" {
		t.Fatalf("expected jdoe, got %q", claim)
	}
}

func TestFromContextFailsWithoutClaim(t *testing.T) {
	if _, err := FromContext(context.Background()); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}

func TestNewContextIgnoresEmptyClaim(t *testing.T) {
	ctx := NewContext(context.Background(), "   ")
	if _, err := FromContext(ctx); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity for blank claim, got %v", err)
	}
}
