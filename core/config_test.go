package core

import (
	"testing"
	"time"
)

const (
	testTenantID = "11111111-2222-3333-4444-555555555555"
	testClientID = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
)

func TestConfigDefaulted(t *testing.T) {
	cfg := Config{TenantID: testTenantID, AppClientID: testClientID}.Defaulted()

	if cfg.Authority != DefaultAuthority {
		t.Errorf("expected default authority, got %q", cfg.Authority)
	}
	if len(cfg.Algorithms) != 1 || cfg.Algorithms[0] != "RS256" {
		t.Errorf("expected RS256-only default, got %v", cfg.Algorithms)
	}
	if cfg.Skew != DefaultClockSkew {
		t.Errorf("expected default skew, got %v", cfg.Skew)
	}
	if cfg.CacheTTL != DefaultCacheTTL {
		t.Errorf("expected default cache TTL, got %v", cfg.CacheTTL)
	}
	if cfg.HTTPTimeout != DefaultHTTPTimeout {
		t.Errorf("expected default HTTP timeout, got %v", cfg.HTTPTimeout)
	}
	if cfg.KeyRefreshCooldown != DefaultKeyRefreshCooldown {
		t.Errorf("expected default key refresh cooldown, got %v", cfg.KeyRefreshCooldown)
	}
}

func TestConfigDefaultedKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		TenantID:    testTenantID,
		AppClientID: testClientID,
		Authority:   "https://login.microsoftonline.us/",
		Skew:        5 * time.Second,
	}.Defaulted()

	if cfg.Authority != "https://login.microsoftonline.us" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Authority)
	}
	if cfg.Skew != 5*time.Second {
		t.Errorf("expected explicit skew kept, got %v", cfg.Skew)
	}
}

func TestConfigValidate(t *testing.T) {
	good := Config{TenantID: testTenantID, AppClientID: testClientID}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	if err := (Config{TenantID: "contoso", AppClientID: testClientID}).Validate(); err == nil {
		t.Error("expected non-GUID tenant id to be rejected")
	}
	if err := (Config{TenantID: testTenantID, AppClientID: "my-app"}).Validate(); err == nil {
		t.Error("expected non-GUID client id to be rejected")
	}
}

func TestConfigDerivedValues(t *testing.T) {
	cfg := Config{TenantID: testTenantID, AppClientID: testClientID}

	wantIssuer := "https://login.microsoftonline.com/" + testTenantID + "/v2.0"
	if got := cfg.Issuer(); got != wantIssuer {
		t.Errorf("issuer: got %q, want %q", got, wantIssuer)
	}
	if got := cfg.DiscoveryURL(); got != wantIssuer+"/.well-known/openid-configuration" {
		t.Errorf("discovery URL: got %q", got)
	}

	auds := cfg.Audiences()
	if len(auds) != 2 || auds[0] != testClientID || auds[1] != "api://"+testClientID {
		t.Errorf("audiences: got %v", auds)
	}

	if got := cfg.ScopeName(""); got != "api://"+testClientID+"/user_impersonation" {
		t.Errorf("default scope name: got %q", got)
	}
	if got := cfg.ScopeName("access_as_user"); got != "api://"+testClientID+"/access_as_user" {
		t.Errorf("custom scope name: got %q", got)
	}
}

func TestConfigSovereignCloudIssuer(t *testing.T) {
	cfg := Config{
		TenantID:    testTenantID,
		AppClientID: testClientID,
		Authority:   "https://login.microsoftonline.us",
	}
	want := "https://login.microsoftonline.us/" + testTenantID + "/v2.0"
	if got := cfg.Issuer(); got != want {
		t.Errorf("issuer: got %q, want %q", got, want)
	}
}
