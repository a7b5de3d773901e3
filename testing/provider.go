// Package testing provides a mock single-tenant identity provider for
// testing applications that use entrakit, without a real directory.
// It runs an HTTP server exposing the tenant's OpenID configuration and
// signing keys, and mints tokens that validate against them.
//
// Example usage:
//
//	provider := testing.NewProvider()
//	defer provider.Close()
//
//	cache, _ := metakit.New(provider.Config())
//	token := provider.CreateToken("user-123", "test@example.com", "user_impersonation")
package testing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/open-rails/entrakit/core"
	jwtkit "github.com/open-rails/entrakit/jwt"
)

// Provider is a mock Entra ID tenant. It serves
// /{tenant}/v2.0/.well-known/openid-configuration and
// /{tenant}/discovery/v2.0/keys, and signs tokens carrying the claim
// shape real v2.0 access tokens have.
type Provider struct {
	server      *httptest.Server
	tenantID    string
	appClientID string

	mu     sync.Mutex
	signer *jwtkit.RSASigner
	keyGen int

	discoveryFetches atomic.Int64
	keyFetches       atomic.Int64
}

// NewProvider creates a mock provider with generated tenant and
// application ids. Call Close when done.
func NewProvider() *Provider {
	return NewProviderFor(uuid.NewString(), uuid.NewString())
}

// NewProviderFor creates a mock provider for specific tenant and
// application ids.
func NewProviderFor(tenantID, appClientID string) *Provider {
	p := &Provider{
		tenantID:    tenantID,
		appClientID: appClientID,
	}
	p.signer = p.newSigner()

	mux := http.NewServeMux()
	mux.HandleFunc("/"+tenantID+"/v2.0/.well-known/openid-configuration", p.handleDiscovery)
	mux.HandleFunc("/"+tenantID+"/discovery/v2.0/keys", p.handleKeys)

	p.server = httptest.NewServer(mux)
	return p
}

func (p *Provider) newSigner() *jwtkit.RSASigner {
	p.keyGen++
	kid := "mock-key-" + uuid.NewString()[:8]
	signer, err := jwtkit.NewRSASigner(2048, kid)
	if err != nil {
		panic("failed to create RSA signer: " + err.Error())
	}
	return signer
}

// Config returns a core.Config pointing at this provider. Use it to build
// caches and verifiers under test.
func (p *Provider) Config() core.Config {
	return core.Config{
		TenantID:    p.tenantID,
		AppClientID: p.appClientID,
		Authority:   p.server.URL,
	}
}

// Issuer returns the iss value of tokens this provider mints.
func (p *Provider) Issuer() string {
	return p.server.URL + "/" + p.tenantID + "/v2.0"
}

// TenantID returns the mock directory id.
func (p *Provider) TenantID() string { return p.tenantID }

// AppClientID returns the mock application id.
func (p *Provider) AppClientID() string { return p.appClientID }

// KID returns the current signing key id.
func (p *Provider) KID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signer.KID()
}

// RotateKey replaces the signing key, simulating provider key rotation.
// Tokens minted afterwards carry a key id absent from previously fetched
// key sets.
func (p *Provider) RotateKey() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signer = p.newSigner()
}

// DiscoveryFetches reports how many times the configuration endpoint was
// hit, for cache idempotence assertions.
func (p *Provider) DiscoveryFetches() int64 { return p.discoveryFetches.Load() }

// KeyFetches reports how many times the keys endpoint was hit.
func (p *Provider) KeyFetches() int64 { return p.keyFetches.Load() }

// Close shuts down the test server.
func (p *Provider) Close() {
	if p.server != nil {
		p.server.Close()
	}
}

func (p *Provider) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	p.discoveryFetches.Add(1)
	doc := struct {
		Issuer                string   `json:"issuer"`
		JWKSURI               string   `json:"jwks_uri"`
		AuthorizationEndpoint string   `json:"authorization_endpoint"`
		TokenEndpoint         string   `json:"token_endpoint"`
		SigningAlgs           []string `json:"id_token_signing_alg_values_supported"`
	}{
		Issuer:                p.Issuer(),
		JWKSURI:               p.server.URL + "/" + p.tenantID + "/discovery/v2.0/keys",
		AuthorizationEndpoint: p.Issuer() + "/authorize",
		TokenEndpoint:         p.Issuer() + "/token",
		SigningAlgs:           []string{"RS256"},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

func (p *Provider) handleKeys(w http.ResponseWriter, r *http.Request) {
	p.keyFetches.Add(1)
	p.mu.Lock()
	signer := p.signer
	p.mu.Unlock()
	jwk := jwtkit.RSAPublicToJWK(signer.PublicKey(), signer.KID(), signer.Algorithm())
	jwtkit.ServeJWKS(w, r, jwtkit.JWKS{Keys: []jwtkit.JWK{jwk}})
}

// CreateToken signs a token for userID with the given scopes. The token
// carries the standard v2.0 access-token claims: iss, aud, sub, tid, oid,
// name, preferred_username, scp, exp, nbf, iat.
func (p *Provider) CreateToken(userID, email string, scopes ...string) string {
	return p.CreateTokenWithClaims(userID, email, map[string]any{
		"scp": strings.Join(scopes, " "),
	})
}

// CreateTokenWithClaims signs a token with extra claims merged over the
// defaults, so tests can override any claim (iss, aud, exp, ...).
func (p *Provider) CreateTokenWithClaims(userID, email string, extraClaims map[string]any) string {
	now := time.Now()

	claims := jwt.MapClaims{
		"iss":                p.Issuer(),
		"aud":                p.appClientID,
		"sub":                userID,
		"tid":                p.tenantID,
		"oid":                uuid.NewString(),
		"name":               "Test User",
		"preferred_username": email,
		"exp":                now.Add(time.Hour).Unix(),
		"nbf":                now.Unix(),
		"iat":                now.Unix(),
	}
	for k, v := range extraClaims {
		claims[k] = v
	}

	p.mu.Lock()
	signer := p.signer
	p.mu.Unlock()

	token, err := signer.Sign(context.Background(), claims)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}

// CreateTokenWithRoles signs a token carrying app role assignments.
func (p *Provider) CreateTokenWithRoles(userID, email string, roles []string, scopes ...string) string {
	return p.CreateTokenWithClaims(userID, email, map[string]any{
		"scp":   strings.Join(scopes, " "),
		"roles": roles,
	})
}

// CreateTokenWithExpiry signs a token with a custom expiry time.
func (p *Provider) CreateTokenWithExpiry(userID, email string, expiry time.Time, scopes ...string) string {
	return p.CreateTokenWithClaims(userID, email, map[string]any{
		"scp": strings.Join(scopes, " "),
		"exp": expiry.Unix(),
	})
}

// CreateExpiredToken signs a token that expired an hour ago, past any
// reasonable skew tolerance.
func (p *Provider) CreateExpiredToken(userID, email string, scopes ...string) string {
	return p.CreateTokenWithExpiry(userID, email, time.Now().Add(-time.Hour), scopes...)
}
