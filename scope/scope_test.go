package scopekit

import (
	"errors"
	"reflect"
	"testing"

	"github.com/open-rails/entrakit/core"
)

func identityWith(scopes ...string) *core.Identity {
	return &core.Identity{Subject: "user-123", Scopes: scopes}
}

func TestSplit(t *testing.T) {
	got := Split("user_impersonation  files.read ")
	want := []string{"user_impersonation", "files.read"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split: got %v, want %v", got, want)
	}
	if got := Split(""); len(got) != 0 {
		t.Fatalf("Split empty: got %v", got)
	}
}

func TestAuthorizeEmptyRequirement(t *testing.T) {
	if err := Authorize(identityWith(), nil, RequireAny); err != nil {
		t.Fatalf("expected empty requirement to succeed, got %v", err)
	}
}

func TestAuthorizeRequireAny(t *testing.T) {
	id := identityWith("files.read")

	if err := Authorize(id, []string{"user_impersonation", "files.read"}, RequireAny); err != nil {
		t.Fatalf("expected one matching scope to satisfy RequireAny, got %v", err)
	}

	err := Authorize(id, []string{"user_impersonation"}, RequireAny)
	if !errors.Is(err, core.ErrInsufficientScope) {
		t.Fatalf("got %v, want ErrInsufficientScope", err)
	}

	var ise *core.InsufficientScopeError
	if !errors.As(err, &ise) {
		t.Fatal("expected *core.InsufficientScopeError")
	}
	if !reflect.DeepEqual(ise.Missing, []string{"user_impersonation"}) {
		t.Errorf("missing: got %v", ise.Missing)
	}
}

func TestAuthorizeRequireAll(t *testing.T) {
	id := identityWith("user_impersonation")

	if err := Authorize(id, []string{"user_impersonation"}, RequireAll); err != nil {
		t.Fatalf("expected full match to satisfy RequireAll, got %v", err)
	}

	err := Authorize(id, []string{"user_impersonation", "files.read"}, RequireAll)
	var ise *core.InsufficientScopeError
	if !errors.As(err, &ise) {
		t.Fatalf("got %v, want *core.InsufficientScopeError", err)
	}
	if !reflect.DeepEqual(ise.Missing, []string{"files.read"}) {
		t.Errorf("missing: got %v", ise.Missing)
	}
}

func TestAuthorizeNoGrantedScopes(t *testing.T) {
	err := Authorize(identityWith(), []string{"user_impersonation"}, RequireAny)
	if !errors.Is(err, core.ErrInsufficientScope) {
		t.Fatalf("got %v, want ErrInsufficientScope", err)
	}
}
