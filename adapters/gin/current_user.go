package authgin

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/open-rails/entrakit/core"
)

// UserView is a JSON-friendly snapshot of the caller for handlers that
// echo identity back to clients (profile endpoints, diagnostics).
type UserView struct {
	Subject  string   `json:"subject"`
	TenantID string   `json:"tenant_id,omitempty"`
	ObjectID string   `json:"object_id,omitempty"`
	Name     string   `json:"name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Scopes   []string `json:"scopes,omitempty"`
	Roles    []string `json:"roles,omitempty"`

	// Source is "token" when the guard attached an identity, "none"
	// otherwise.
	Source string `json:"source"`
}

// CurrentUser returns a unified user snapshot for handlers. The second
// return is false on routes the guard did not run on (or rejected).
func CurrentUser(c *gin.Context) (UserView, bool) {
	id, ok := IdentityFrom(c)
	if !ok {
		return UserView{Source: "none"}, false
	}
	return viewOf(id), true
}

func viewOf(id *core.Identity) UserView {
	v := UserView{
		Subject: id.Subject,
		Name:    id.Name,
		Email:   id.Email,
		Scopes:  id.Scopes,
		Roles:   id.Roles,
		Source:  "token",
	}
	if id.TenantID != uuid.Nil {
		v.TenantID = id.TenantID.String()
	}
	if id.ObjectID != uuid.Nil {
		v.ObjectID = id.ObjectID.String()
	}
	return v
}
