package auth

import (
	"context"

	"github.com/google/uuid"
)

// Principal is the authenticated actor attempting an operation. A nil
// principal means the request is anonymous — only the public registration
// endpoint accepts that.
type Principal struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// RequestMeta carries request provenance for audit recording.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type principalContextKey struct{}
type requestMetaContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// ContextWithRequestMeta attaches request provenance (IP, user agent).
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaContextKey{}, meta)
}

// RequestMetaFromContext returns request provenance if it was attached.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if ctx == nil {
		return RequestMeta{}
	}
	if v, ok := ctx.Value(requestMetaContextKey{}).(RequestMeta); ok {
		return v
	}
	return RequestMeta{}
}
