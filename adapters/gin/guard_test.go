package authgin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/entrakit/core"
)

type stubVerifier struct {
	id  *core.Identity
	err error
}

func (s *stubVerifier) Verify(ctx context.Context, rawToken string) (*core.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.id, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newRouter(v TokenVerifier, scopes ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	guard := NewGuard(v, WithLogger(quietLogger()))
	r.GET("/api/me", guard.Require(scopes...), func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, user)
	})
	return r
}

func TestGinGuardMissingCredentials(t *testing.T) {
	r := newRouter(&stubVerifier{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
}

func TestGinGuardInvalidToken(t *testing.T) {
	r := newRouter(&stubVerifier{err: core.ErrTokenExpired})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
	// Clients get a generic body; the cause stays server-side.
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["error"] != "unauthorized" {
		t.Errorf("body: got %v", body)
	}
}

func TestGinGuardInsufficientScope(t *testing.T) {
	id := &core.Identity{Subject: "user-123", Scopes: []string{"other_scope"}}
	r := newRouter(&stubVerifier{id: id}, "user_impersonation")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", rec.Code)
	}
}

func TestGinGuardCurrentUser(t *testing.T) {
	tid := uuid.New()
	oid := uuid.New()
	id := &core.Identity{
		Subject:  "user-123",
		TenantID: tid,
		ObjectID: oid,
		Name:     "Ada Lovelace",
		Email:    "ada@contoso.com",
		Scopes:   []string{"user_impersonation"},
	}
	r := newRouter(&stubVerifier{id: id}, "user_impersonation")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var user UserView
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if user.Subject != "user-123" || user.Source != "token" {
		t.Errorf("user view: got %+v", user)
	}
	if user.TenantID != tid.String() || user.ObjectID != oid.String() {
		t.Errorf("expected GUIDs rendered, got %+v", user)
	}
	if user.Email != "ada@contoso.com" {
		t.Errorf("email: got %q", user.Email)
	}
}

func TestCurrentUserWithoutGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	user, ok := CurrentUser(c)
	if ok {
		t.Fatal("expected no user on unguarded context")
	}
	if user.Source != "none" {
		t.Errorf("source: got %q", user.Source)
	}
}
