package auth

import (
	"context"
	"net/http"
	apperrors "suroloyo/pkg/errors"
)

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Header names populated by the identity/session provider in front of this
// service. The core trusts them as given and performs no authentication itself.
const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the explicit authorization context threaded through service
// calls. Role checks happen once at the controller boundary against this
// value, never re-derived downstream.
type Identity struct {
	UserID string
	Role   string
}

func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin || id.Role == RoleSuperAdmin
}

func validRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// FromRequest extracts the caller identity from the trusted provider headers.
func FromRequest(r *http.Request) (Identity, error) {
	userID := r.Header.Get(HeaderUserID)
	if userID == "" {
		return Identity{}, apperrors.Unauthorized("Missing user identity")
	}

	role := r.Header.Get(HeaderRole)
	if role == "" {
		role = RoleUser
	}
	if !validRole(role) {
		return Identity{}, apperrors.Unauthorized("Unknown role: " + role)
	}

	return Identity{UserID: userID, Role: role}, nil
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// RequireAdmin guards admin-only operations (capacity edits, verification).
func RequireAdmin(id Identity) error {
	if !id.IsAdmin() {
		return apperrors.Forbidden("Administrator role required")
	}
	return nil
}
