package jwtkit

import (
	"errors"
	"reflect"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/open-rails/entrakit/core"
)

func TestClaimsFromMap(t *testing.T) {
	m := jwt.MapClaims{
		"iss":                "https://issuer.example/v2.0",
		"sub":                "user-123",
		"aud":                "client-id",
		"exp":                float64(1700000000),
		"scp":                "user_impersonation files.read",
		"tid":                "11111111-2222-3333-4444-555555555555",
		"oid":                "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
		"name":               "Ada Lovelace",
		"preferred_username": "ada@contoso.com",
		"roles":              []any{"Admin", "Reader"},
		"idp":                "https://sts.windows.net/x/",
	}

	c := claimsFromMap(m)

	if c.Issuer != "https://issuer.example/v2.0" || c.Subject != "user-123" {
		t.Errorf("basic claims: %+v", c)
	}
	if !reflect.DeepEqual(c.Audience, []string{"client-id"}) {
		t.Errorf("aud: got %v", c.Audience)
	}
	if !c.ExpiresAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("exp: got %v", c.ExpiresAt)
	}
	if !reflect.DeepEqual(c.Roles, []string{"Admin", "Reader"}) {
		t.Errorf("roles: got %v", c.Roles)
	}
	if c.Email != "ada@contoso.com" {
		t.Errorf("email: got %q", c.Email)
	}
	if _, ok := c.Extra["idp"]; !ok {
		t.Error("expected unmodeled idp claim in Extra")
	}
}

func TestClaimsEmailFallback(t *testing.T) {
	c := claimsFromMap(jwt.MapClaims{"email": "guest@fabrikam.com"})
	if c.Email != "guest@fabrikam.com" {
		t.Errorf("email fallback: got %q", c.Email)
	}

	c = claimsFromMap(jwt.MapClaims{
		"preferred_username": "ada@contoso.com",
		"email":              "other@contoso.com",
	})
	if c.Email != "ada@contoso.com" {
		t.Errorf("preferred_username should win, got %q", c.Email)
	}
}

func TestClaimsAudienceList(t *testing.T) {
	c := claimsFromMap(jwt.MapClaims{"aud": []any{"a", "b"}})
	if !reflect.DeepEqual(c.Audience, []string{"a", "b"}) {
		t.Errorf("aud list: got %v", c.Audience)
	}
}

func TestClaimsIdentity(t *testing.T) {
	c := &Claims{
		Subject:  "user-123",
		Scope:    "user_impersonation files.read",
		TenantID: "11111111-2222-3333-4444-555555555555",
		ObjectID: "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
	}
	id, err := c.Identity()
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if !reflect.DeepEqual(id.Scopes, []string{"user_impersonation", "files.read"}) {
		t.Errorf("scopes: got %v", id.Scopes)
	}
	if id.TenantID.String() != c.TenantID {
		t.Errorf("tenant id: got %s", id.TenantID)
	}
}

func TestClaimsIdentityRejectsMalformedGUIDs(t *testing.T) {
	c := &Claims{Subject: "user-123", TenantID: "contoso"}
	if _, err := c.Identity(); !errors.Is(err, core.ErrMalformedToken) {
		t.Fatalf("got %v, want ErrMalformedToken for non-GUID tid", err)
	}

	c = &Claims{Subject: "user-123", ObjectID: "not-a-guid"}
	if _, err := c.Identity(); !errors.Is(err, core.ErrMalformedToken) {
		t.Fatalf("got %v, want ErrMalformedToken for non-GUID oid", err)
	}
}
