// Package jwtkit verifies JWT-format bearer tokens against a single-tenant
// Entra ID configuration and the provider's current signing keys. It also
// carries the minimal signing and JWKS-marshalling pieces the kit's mock
// provider is built from.
package jwtkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/open-rails/entrakit/core"
)

// KeySource resolves a signing key by key id, refreshing provider metadata
// as needed. Implemented by the metadata cache.
type KeySource interface {
	SigningKey(ctx context.Context, kid string) (any, error)
}

// Verifier validates bearer tokens: signature first, then issuer, audience
// and time claims, in that order. It holds no per-request state and is safe
// for concurrent use.
type Verifier struct {
	cfg  core.Config
	keys KeySource
	now  func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithClock overrides the time source, for boundary tests.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier builds a verifier for the application described by cfg,
// resolving keys through keys.
func NewVerifier(cfg core.Config, keys KeySource, opts ...VerifierOption) (*Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, errors.New("entrakit: key source is required")
	}
	v := &Verifier{cfg: cfg.Defaulted(), keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify checks rawToken and returns the validated identity. Failures are
// wrapped core sentinels; callers distinguish them with errors.Is.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*core.Identity, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, core.ErrMissingCredentials
	}

	// The parser enforces the algorithm allow-list before the keyfunc
	// runs and verifies the signature before any claim below is trusted.
	parser := jwt.NewParser(
		jwt.WithValidMethods(v.cfg.Algorithms),
		jwt.WithoutClaimsValidation(),
	)
	tok, err := parser.Parse(rawToken, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: token header missing kid", core.ErrUnknownSigningKey)
		}
		return v.keys.SigningKey(ctx, kid)
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", core.ErrMalformedToken)
	}
	claims := claimsFromMap(mc)

	if claims.Issuer != v.cfg.Issuer() {
		return nil, fmt.Errorf("%w: got %q", core.ErrInvalidIssuer, claims.Issuer)
	}
	if !containsAny(claims.Audience, v.cfg.Audiences()) {
		return nil, fmt.Errorf("%w: got %v", core.ErrInvalidAudience, claims.Audience)
	}

	now := v.now()
	if claims.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("%w: missing exp claim", core.ErrMalformedToken)
	}
	if !now.Before(claims.ExpiresAt.Add(v.cfg.Skew)) {
		return nil, core.ErrTokenExpired
	}
	if !claims.NotBefore.IsZero() && now.Before(claims.NotBefore.Add(-v.cfg.Skew)) {
		return nil, core.ErrTokenNotYetValid
	}

	return claims.Identity()
}

func mapParseError(err error) error {
	switch {
	// Keyfunc failures surface as-is.
	case errors.Is(err, core.ErrUnknownSigningKey),
		errors.Is(err, core.ErrMetadataUnavailable):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	default:
		// Signature failures and disallowed algorithms.
		return fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}
}

func containsAny(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
