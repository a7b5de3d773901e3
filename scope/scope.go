// Package scopekit decides whether a validated identity satisfies a
// route's required delegated permissions.
package scopekit

import (
	"strings"

	"github.com/open-rails/entrakit/core"
)

// Policy selects how a route's required scopes combine.
type Policy int

const (
	// RequireAny accepts identities granted at least one required scope.
	// This is the default and matches typical single-scope APIs.
	RequireAny Policy = iota
	// RequireAll accepts only identities granted every required scope.
	RequireAll
)

// Split parses a space-delimited scp claim value into scope names.
func Split(scp string) []string {
	return strings.Fields(scp)
}

// Authorize checks the identity's granted scopes against required under
// policy. An empty required set succeeds trivially: the route demands
// authentication only. On failure the returned error is an
// *core.InsufficientScopeError naming the missing scopes; that detail is
// for server-side diagnostics, not for clients.
func Authorize(identity *core.Identity, required []string, policy Policy) error {
	if len(required) == 0 {
		return nil
	}
	granted := make(map[string]bool, len(identity.Scopes))
	for _, s := range identity.Scopes {
		granted[s] = true
	}

	missing := make([]string, 0, len(required))
	for _, want := range required {
		if !granted[want] {
			missing = append(missing, want)
		}
	}

	switch policy {
	case RequireAll:
		if len(missing) > 0 {
			return &core.InsufficientScopeError{Missing: missing}
		}
	default:
		if len(missing) == len(required) {
			return &core.InsufficientScopeError{Missing: missing}
		}
	}
	return nil
}
