// Package authhttp is the net/http boundary adapter: it extracts the
// bearer credential, runs verification and scope enforcement, and either
// attaches the validated identity to the request context or rejects.
// Clients see only the unauthorized/forbidden distinction; causes stay in
// the server logs.
package authhttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/open-rails/entrakit/core"
	scopekit "github.com/open-rails/entrakit/scope"
)

// TokenVerifier validates a raw bearer token and returns the identity.
// Implemented by jwtkit.Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*core.Identity, error)
}

// RateLimiter throttles repeated failed bearer attempts per client.
// Implemented by ratelimit/memory and ratelimit/redis.
type RateLimiter interface {
	AllowNamed(bucket, key string) (bool, error)
}

// failedAuthBucket names the limiter bucket for rejected credentials.
const failedAuthBucket = "bearer_auth_fail"

// Guard gates protected routes. Public routes simply don't use it.
type Guard struct {
	verifier TokenVerifier
	policy   scopekit.Policy
	log      *logrus.Logger
	limiter  RateLimiter
	realm    string
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithLogger sets the logger for rejection causes.
func WithLogger(log *logrus.Logger) GuardOption {
	return func(g *Guard) { g.log = log }
}

// WithPolicy sets the scope combination policy. Default is RequireAny.
func WithPolicy(p scopekit.Policy) GuardOption {
	return func(g *Guard) { g.policy = p }
}

// WithRateLimiter throttles clients that keep presenting bad credentials.
func WithRateLimiter(l RateLimiter) GuardOption {
	return func(g *Guard) { g.limiter = l }
}

// WithRealm sets the realm echoed in WWW-Authenticate challenges,
// typically the issuer URL.
func WithRealm(realm string) GuardOption {
	return func(g *Guard) { g.realm = realm }
}

// NewGuard builds a guard around verifier.
func NewGuard(verifier TokenVerifier, opts ...GuardOption) *Guard {
	g := &Guard{verifier: verifier}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logrus.StandardLogger()
	}
	return g
}

// Require returns middleware that authenticates the request and enforces
// the given scopes. With no scopes the route requires authentication only.
func (g *Guard) Require(requiredScopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := BearerToken(r)
			if tok == "" {
				g.reject(w, r, core.ErrMissingCredentials)
				return
			}

			identity, err := g.verifier.Verify(r.Context(), tok)
			if err != nil {
				g.reject(w, r, err)
				return
			}
			if err := scopekit.Authorize(identity, requiredScopes, g.policy); err != nil {
				g.reject(w, r, err)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// reject maps a failure onto the two client-visible outcomes and records
// the real cause server-side.
func (g *Guard) reject(w http.ResponseWriter, r *http.Request, cause error) {
	entry := g.log.WithFields(logrus.Fields{
		"remote": clientKey(r),
		"path":   r.URL.Path,
	})

	if g.limiter != nil {
		allowed, lerr := g.limiter.AllowNamed(failedAuthBucket, clientKey(r))
		if lerr != nil {
			entry.WithError(lerr).Warn("rate limiter unavailable")
		} else if !allowed {
			entry.Warn("client over failed-auth limit")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
	}

	if errors.Is(cause, core.ErrInsufficientScope) {
		var ise *core.InsufficientScopeError
		if errors.As(cause, &ise) {
			entry = entry.WithField("missing_scopes", ise.Missing)
		}
		entry.Warn("authorization denied")
		w.Header().Set("WWW-Authenticate", g.challenge("insufficient_scope"))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	entry.WithError(cause).Warn("authentication failed")
	if errors.Is(cause, core.ErrMissingCredentials) {
		w.Header().Set("WWW-Authenticate", g.challenge(""))
	} else {
		w.Header().Set("WWW-Authenticate", g.challenge("invalid_token"))
	}
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// challenge builds an RFC 6750 Bearer challenge. Error codes are the
// standard registry values; no cause detail is included.
func (g *Guard) challenge(errCode string) string {
	var parts []string
	if g.realm != "" {
		parts = append(parts, fmt.Sprintf("realm=%q", g.realm))
	}
	if errCode != "" {
		parts = append(parts, fmt.Sprintf("error=%q", errCode))
	}
	if len(parts) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(parts, ", ")
}

// BearerToken extracts the token from the Authorization header. The header
// name and Bearer scheme are a fixed contract with client tooling.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
