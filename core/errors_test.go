package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestInsufficientScopeErrorUnwrap(t *testing.T) {
	var err error = &InsufficientScopeError{Missing: []string{"user_impersonation"}}

	if !errors.Is(err, ErrInsufficientScope) {
		t.Fatal("expected InsufficientScopeError to unwrap to ErrInsufficientScope")
	}
	if !strings.Contains(err.Error(), "user_impersonation") {
		t.Errorf("expected missing scope in message, got %q", err.Error())
	}

	var ise *InsufficientScopeError
	if !errors.As(err, &ise) {
		t.Fatal("expected errors.As to find InsufficientScopeError")
	}
}

func TestWrappedSentinels(t *testing.T) {
	wrapped := fmt.Errorf("%w: kid %q", ErrUnknownSigningKey, "abc")
	if !errors.Is(wrapped, ErrUnknownSigningKey) {
		t.Fatal("expected wrapped sentinel to match with errors.Is")
	}
	if errors.Is(wrapped, ErrInvalidSignature) {
		t.Fatal("sentinels must be distinct")
	}
}
