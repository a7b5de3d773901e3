package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultAuthority is the Microsoft Entra ID login endpoint for the
	// public cloud. Sovereign clouds override it via Config.Authority.
	DefaultAuthority = "https://login.microsoftonline.com"

	// DefaultScopeDescription is the delegated permission name exposed by
	// most single-scope APIs registered in Entra ID.
	DefaultScopeDescription = "user_impersonation"
)

// Defaults applied by Config.Defaulted.
const (
	DefaultClockSkew          = 60 * time.Second
	DefaultCacheTTL           = 24 * time.Hour
	DefaultHTTPTimeout        = 10 * time.Second
	DefaultKeyRefreshCooldown = 30 * time.Second
)

// Config describes the single-tenant application this resource server
// verifies bearer tokens for. It is passed explicitly to constructors;
// loading it from the environment is the host's job.
type Config struct {
	// TenantID is the directory (tenant) id, a GUID.
	TenantID string

	// AppClientID is the backend application (client) id, a GUID. Tokens
	// must carry it (or its api:// resource URI form) as an audience.
	AppClientID string

	// Authority is the login endpoint base URL. Empty means
	// DefaultAuthority. Tests point it at a mock provider.
	Authority string

	// Algorithms is the allow-list of accepted JWS algorithms.
	// Empty means RS256 only.
	Algorithms []string

	// Skew is the clock-skew tolerance applied symmetrically to the
	// exp and nbf checks. Zero means DefaultClockSkew.
	Skew time.Duration

	// CacheTTL bounds how long a fetched metadata+key snapshot is
	// considered fresh. Zero means DefaultCacheTTL.
	CacheTTL time.Duration

	// MaxStale bounds how far past CacheTTL a snapshot may still be
	// served when the provider is unreachable. Zero means no bound
	// (serve the last known good snapshot indefinitely).
	MaxStale time.Duration

	// HTTPTimeout bounds each discovery/JWKS fetch. Zero means
	// DefaultHTTPTimeout.
	HTTPTimeout time.Duration

	// KeyRefreshCooldown is the minimum interval between key refreshes
	// triggered by tokens carrying an unknown key id, so forged key ids
	// cannot drive a fetch per request. Zero means
	// DefaultKeyRefreshCooldown.
	KeyRefreshCooldown time.Duration
}

// Defaulted returns a copy with zero fields replaced by defaults.
func (c Config) Defaulted() Config {
	out := c
	if strings.TrimSpace(out.Authority) == "" {
		out.Authority = DefaultAuthority
	}
	out.Authority = strings.TrimRight(out.Authority, "/")
	if len(out.Algorithms) == 0 {
		out.Algorithms = []string{"RS256"}
	}
	if out.Skew == 0 {
		out.Skew = DefaultClockSkew
	}
	if out.CacheTTL == 0 {
		out.CacheTTL = DefaultCacheTTL
	}
	if out.HTTPTimeout == 0 {
		out.HTTPTimeout = DefaultHTTPTimeout
	}
	if out.KeyRefreshCooldown == 0 {
		out.KeyRefreshCooldown = DefaultKeyRefreshCooldown
	}
	return out
}

// Validate checks the fields the component cannot default.
func (c Config) Validate() error {
	if _, err := uuid.Parse(c.TenantID); err != nil {
		return fmt.Errorf("entrakit: tenant id must be a GUID: %w", err)
	}
	if _, err := uuid.Parse(c.AppClientID); err != nil {
		return fmt.Errorf("entrakit: app client id must be a GUID: %w", err)
	}
	return nil
}

// Issuer returns the expected iss claim for v2.0 tokens of this tenant.
func (c Config) Issuer() string {
	return c.Defaulted().Authority + "/" + c.TenantID + "/v2.0"
}

// DiscoveryURL returns the tenant's OpenID configuration endpoint.
func (c Config) DiscoveryURL() string {
	return c.Issuer() + "/.well-known/openid-configuration"
}

// Audiences returns the audience values accepted for this application:
// the bare client id (v2.0 tokens) and its resource URI form (v1.0 tokens).
func (c Config) Audiences() []string {
	return []string{c.AppClientID, "api://" + c.AppClientID}
}

// ScopeName returns the fully qualified delegated permission identifier,
// api://<app-client-id>/<description>. Clients request this value; the
// token's scp claim carries only the bare description.
func (c Config) ScopeName(description string) string {
	if strings.TrimSpace(description) == "" {
		description = DefaultScopeDescription
	}
	return "api://" + c.AppClientID + "/" + description
}
