package handlers

import (
	"context"
	"net/http"
)

// Context keys
type contextKey string

const (
	// PrincipalKey is the key for the caller principal in the context
	PrincipalKey contextKey = "principal"
)

// PrincipalHeader carries the already-authenticated caller identity, set by
// the upstream auth gateway. The engine treats it as an opaque identifier.
const PrincipalHeader = "X-Principal"

// NewContextWithPrincipal adds a principal to the context
func NewContextWithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// PrincipalFromContext extracts the principal from the context
func PrincipalFromContext(ctx context.Context) (string, bool) {
	principal, ok := ctx.Value(PrincipalKey).(string)
	return principal, ok && principal != ""
}

// RequirePrincipal rejects requests that arrive without a caller identity.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := r.Header.Get(PrincipalHeader)
		if principal == "" {
			http.Error(w, "missing principal", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContextWithPrincipal(r.Context(), principal)))
	})
}
