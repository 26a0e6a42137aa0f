// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http.
package requestcontext

import (
	"context"
	"time"

	"qualis/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	tenantIDKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// DefaultTenant is assumed when a request carries no X-Tenant-Id header.
const DefaultTenant = domain.TenantID("default")

// TenantID retrieves the tenant identity from the context, falling back to
// DefaultTenant when unset so single-organization deployments need no header.
func TenantID(ctx context.Context) domain.TenantID {
	if t, ok := ctx.Value(tenantIDKey{}).(domain.TenantID); ok && t != "" {
		return t
	}
	return DefaultTenant
}

// WithTenantID injects a tenant identity into the context.
func WithTenantID(ctx context.Context, tenant domain.TenantID) context.Context {
	return context.WithValue(ctx, tenantIDKey{}, tenant)
}

// RequestID retrieves the request id from the context, empty if unset.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request id into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now returns the request time when one was injected, else the wall clock.
// Tests inject a fixed time with WithTime to pin revision dates and codes.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
