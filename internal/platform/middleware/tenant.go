package middleware

import (
	"net/http"

	"qualis/pkg/domain"
	"qualis/pkg/requestcontext"
)

// TenantHeader is the client-supplied organization identity. There is no
// verification behind it; tenant scoping is data partitioning, not security.
const TenantHeader = "X-Tenant-Id"

// Tenant copies the tenant header into the request context. Requests without
// the header fall through to the default tenant.
func Tenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := r.Header.Get(TenantHeader); raw != "" {
				ctx := requestcontext.WithTenantID(r.Context(), domain.TenantID(raw))
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}
