package core

import "github.com/google/uuid"

// Identity is the verifier's output: the application-relevant claims of a
// successfully verified token. It is created fresh per verification and
// scoped to the request; nothing in the kit retains it.
type Identity struct {
	// Subject is the token's sub claim, a stable pairwise user id.
	Subject string

	// TenantID is the directory the user signed in from (tid claim).
	TenantID uuid.UUID

	// ObjectID is the user's directory object id (oid claim).
	ObjectID uuid.UUID

	// Name is the human-readable display name, if the token carries one.
	Name string

	// Email is taken from preferred_username, falling back to the email
	// claim. May be empty for app-only or guest tokens.
	Email string

	// Scopes are the delegated permissions granted to the client acting
	// for this user (split from the scp claim).
	Scopes []string

	// Roles are app role assignments (roles claim).
	Roles []string

	// Extra preserves claims the typed set does not model.
	Extra map[string]any
}

// HasScope reports whether the identity was granted the named scope.
func (id *Identity) HasScope(name string) bool {
	for _, s := range id.Scopes {
		if s == name {
			return true
		}
	}
	return false
}

// HasRole reports whether the identity carries the named app role.
func (id *Identity) HasRole(name string) bool {
	for _, r := range id.Roles {
		if r == name {
			return true
		}
	}
	return false
}
