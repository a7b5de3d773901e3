// Package authgin adapts the token verifier and scope enforcer to gin
// handler chains.
package authgin

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	authhttp "github.com/open-rails/entrakit/adapters/http"
	"github.com/open-rails/entrakit/core"
	scopekit "github.com/open-rails/entrakit/scope"
)

// identityContextKey is the gin context key the guard stores the identity
// under. Handlers should use IdentityFrom rather than reading it directly.
const identityContextKey = "entrakit.identity"

// TokenVerifier validates a raw bearer token. Implemented by
// jwtkit.Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*core.Identity, error)
}

// Guard gates protected gin routes.
type Guard struct {
	verifier TokenVerifier
	policy   scopekit.Policy
	log      *logrus.Logger
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
func (g *Guard) Require(requiredScopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := authhttp.BearerToken(c.Request)
		if tok == "" {
			g.reject(c, core.ErrMissingCredentials)
			return
		}

		identity, err := g.verifier.Verify(c.Request.Context(), tok)
		if err != nil {
			g.reject(c, err)
			return
		}
		if err := scopekit.Authorize(identity, requiredScopes, g.policy); err != nil {
			g.reject(c, err)
			return
		}

		c.Set(identityContextKey, identity)
		c.Request = c.Request.WithContext(authhttp.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

func (g *Guard) reject(c *gin.Context, cause error) {
	entry := g.log.WithFields(logrus.Fields{
		"remote": c.ClientIP(),
		"path":   c.Request.URL.Path,
	})
	if errors.Is(cause, core.ErrInsufficientScope) {
		var ise *core.InsufficientScopeError
		if errors.As(cause, &ise) {
			entry = entry.WithField("missing_scopes", ise.Missing)
		}
		entry.Warn("authorization denied")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	entry.WithError(cause).Warn("authentication failed")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// IdentityFrom returns the identity the guard attached, if any.
func IdentityFrom(c *gin.Context) (*core.Identity, bool) {
	v, ok := c.Get(identityContextKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*core.Identity)
	return id, ok && id != nil
}
