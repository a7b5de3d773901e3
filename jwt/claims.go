package jwtkit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/open-rails/entrakit/core"
)

// Claims is the strongly typed claim set of an Entra ID access token.
// Claims the struct does not model are preserved in Extra instead of
// failing the parse.
type Claims struct {
	Issuer    string
	Subject   string
	Audience  []string
	ExpiresAt time.Time // zero if absent
	NotBefore time.Time // zero if absent
	IssuedAt  time.Time // zero if absent

	// Scope is the raw space-delimited scp claim.
	Scope string

	TenantID string // tid
	ObjectID string // oid
	Name     string
	Email    string // preferred_username, falling back to email

	Roles []string

	Extra map[string]any
}

func claimsFromMap(m jwt.MapClaims) *Claims {
	c := &Claims{Extra: map[string]any{}}
	var preferred, email string
	for k, v := range m {
		switch k {
		case "iss":
			c.Issuer, _ = v.(string)
		case "sub":
			c.Subject, _ = v.(string)
		case "aud":
			c.Audience = stringList(v)
		case "exp":
			c.ExpiresAt = numericTime(v)
		case "nbf":
			c.NotBefore = numericTime(v)
		case "iat":
			c.IssuedAt = numericTime(v)
		case "scp":
			c.Scope, _ = v.(string)
		case "tid":
			c.TenantID, _ = v.(string)
		case "oid":
			c.ObjectID, _ = v.(string)
		case "name":
			c.Name, _ = v.(string)
		case "preferred_username":
			preferred, _ = v.(string)
		case "email":
			email, _ = v.(string)
		case "roles":
			c.Roles = stringList(v)
		default:
			c.Extra[k] = v
		}
	}
	c.Email = preferred
	if c.Email == "" {
		c.Email = email
	}
	return c
}

// Identity converts the claim set into the record handed to request
// handlers. Entra directory and object ids are GUIDs; a malformed one
// means the claim set is not usable.
func (c *Claims) Identity() (*core.Identity, error) {
	id := &core.Identity{
		Subject: c.Subject,
		Name:    c.Name,
		Email:   c.Email,
		Scopes:  strings.Fields(c.Scope),
		Roles:   c.Roles,
		Extra:   c.Extra,
	}
	if c.TenantID != "" {
		tid, err := uuid.Parse(c.TenantID)
		if err != nil {
			return nil, fmt.Errorf("%w: tid claim is not a GUID", core.ErrMalformedToken)
		}
		id.TenantID = tid
	}
	if c.ObjectID != "" {
		oid, err := uuid.Parse(c.ObjectID)
		if err != nil {
			return nil, fmt.Errorf("%w: oid claim is not a GUID", core.ErrMalformedToken)
		}
		id.ObjectID = oid
	}
	return id, nil
}

// stringList tolerates the JSON shapes (string, []any, []string) providers
// use for aud and roles.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func numericTime(v any) time.Time {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return time.Unix(n, 0)
		}
	case int64:
		return time.Unix(t, 0)
	}
	return time.Time{}
}
