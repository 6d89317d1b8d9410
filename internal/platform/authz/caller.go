package authz

import (
	"context"

	"github.com/google/uuid"
)

// Caller is the resolved identity of an authenticated request: who is asking,
// in what role, and inside which organization. The auth middleware builds it
// from token claims; the engines below only consume it.
type Caller struct {
	UserID uuid.UUID
	Role   Role
	OrgID  uuid.UUID
}

// HasOrg reports whether the caller has an organization selected. A caller
// without one has no valid session for organization-scoped resources: every
// predicate returns false and every scope is unsatisfiable.
func (c Caller) HasOrg() bool {
	return c.OrgID != uuid.Nil
}

type contextKey string

const callerKey contextKey = "authz_caller"

// WithCaller returns a context carrying the caller.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFromContext retrieves the caller set by the auth middleware. The
// second return is false for unauthenticated requests.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok
}
