// Package metakit owns retrieval and caching of the identity provider's
// OpenID discovery document and signing key set. Verification code asks it
// for keys by key id; the cost and failure modes of the network are hidden
// behind snapshot semantics.
package metakit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/open-rails/entrakit/core"
)

// Document is the subset of the OpenID discovery document this component
// consumes. The document shape is a third-party contract; unknown fields
// are ignored and required ones are checked after decoding.
type Document struct {
	Issuer                string   `json:"issuer"`
	JWKSURI               string   `json:"jwks_uri"`
	AuthorizationEndpoint string   `json:"authorization_endpoint,omitempty"`
	TokenEndpoint         string   `json:"token_endpoint,omitempty"`
	SigningAlgs           []string `json:"id_token_signing_alg_values_supported,omitempty"`
}

// maxBodyBytes caps discovery and JWKS response bodies. Real documents are
// a few KB; anything larger is treated as malformed.
const maxBodyBytes = 1 << 20

func fetchDocument(ctx context.Context, client *http.Client, url, expectedIssuer string) (Document, error) {
	body, err := fetchBody(ctx, client, url)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: decoding discovery document: %v", core.ErrMetadataUnavailable, err)
	}
	if doc.Issuer == "" || doc.JWKSURI == "" {
		return Document{}, fmt.Errorf("%w: discovery document missing issuer or jwks_uri", core.ErrMetadataUnavailable)
	}
	if expectedIssuer != "" && strings.TrimRight(doc.Issuer, "/") != strings.TrimRight(expectedIssuer, "/") {
		return Document{}, fmt.Errorf("%w: discovery issuer mismatch: %s", core.ErrMetadataUnavailable, doc.Issuer)
	}
	return doc, nil
}

func fetchJWKS(ctx context.Context, client *http.Client, url string) (jwk.Set, []byte, error) {
	body, err := fetchBody(ctx, client, url)
	if err != nil {
		return nil, nil, err
	}
	set, err := jwk.Parse(body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parsing JWKS: %v", core.ErrMetadataUnavailable, err)
	}
	if set.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: JWKS contains no keys", core.ErrMetadataUnavailable)
	}
	return set, body, nil
}

func fetchBody(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMetadataUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", core.ErrMetadataUnavailable, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", core.ErrMetadataUnavailable, url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", core.ErrMetadataUnavailable, url, err)
	}
	return body, nil
}
