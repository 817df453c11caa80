package auth

import "context"

// Principal is the authenticated identity attached to a request.
type Principal struct {
	Subject string
	Email   string
	Roles   RoleSet
}

type contextKey string

const principalKey contextKey = "workoutlog-auth-principal"

// WithPrincipal stores the principal on the context.
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// FromContext retrieves the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalKey).(*Principal)
	return principal, ok
}
