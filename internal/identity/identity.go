// Package identity carries the caller's trusted identity claim for the
// duration of a single request. The claim travels as a context value so it can
// never leak between requests sharing a worker, unlike mutable global state.
package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrNoIdentity indicates that no identity claim is attached to the context.
var ErrNoIdentity = errors.New("identity: no claim in context")

type contextKey struct{}

// Normalize folds an identity claim to its canonical form. Claims are compared
// case-insensitively, so every lookup goes through this first.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NewContext returns a child context carrying the normalized claim. An empty
// claim is stored as absent.
func NewContext(ctx context.Context, claim string) context.Context {
	normalized := Normalize(claim)
	if normalized == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, normalized)
}

// FromContext extracts the caller's identity claim.
func FromContext(ctx context.Context) (string, error) {
	claim, ok := ctx.Value(contextKey{}).(string)
	if !ok || claim == "" {
		return "", ErrNoIdentity
	}
	return claim, nil
}
