package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zasterix/zasterix/internal/logger"
)

const (
	headerUserID         = "X-User-ID"
	headerOrganizationID = "X-Organization-ID"
)

// Identity is the caller as resolved by the upstream identity provider. Both
// fields may be empty for anonymous callers.
type Identity struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
}

// Resolved reports whether a user id is known.
func (i Identity) Resolved() bool { return i.UserID != "" }

// OrgPtr returns the organization id as a nullable value.
func (i Identity) OrgPtr() *string {
	if i.OrganizationID == "" {
		return nil
	}
	org := i.OrganizationID
	return &org
}

type identityCtxKey struct{}

// IdentityFromHeaders is middleware that reads X-User-ID and
// X-Organization-ID, set by the identity gateway, into the request context.
func IdentityFromHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			UserID:         strings.TrimSpace(r.Header.Get(headerUserID)),
			OrganizationID: strings.TrimSpace(r.Header.Get(headerOrganizationID)),
		}
		ctx := logger.WithUserID(WithIdentity(r.Context(), id), id.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the identity stored in ctx, or an anonymous
// identity if absent.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityCtxKey{}).(Identity)
	return id
}
